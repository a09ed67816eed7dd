package storage

import (
	"github.com/ipfs/go-cid"
)

// MultiCAS provides deterministic, ordered fallback across multiple archives,
// for example a writable local mirror in front of read-only shared copies.
//
// Lookup order is the slice order in Adapters. Put writes only to the first
// adapter.
type MultiCAS struct {
	Adapters []CAS
}

func (m MultiCAS) Put(bytes []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, ErrNoAdapters
	}
	return m.Adapters[0].Put(bytes)
}

// Get returns the first hit. A non-NotFound error from any adapter stops the
// search.
func (m MultiCAS) Get(id cid.Cid) ([]byte, error) {
	for _, cas := range m.Adapters {
		b, err := cas.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiCAS) Has(id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(id) {
			return true
		}
	}
	return false
}
