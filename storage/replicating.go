package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/zcyzhu/node-guardtime/cidutil"
)

// NamedCAS is an archive with a name used in mirror reports.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS mirrors every Put to all backends. Reads fall back in
// order like MultiCAS.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = ReplicatingCAS{}

// PutAll stores bytes in every backend and returns what each one reported.
// The first backend whose CID differs from the content CID stops the write
// with ErrCIDMismatch.
func (r ReplicatingCAS) PutAll(bytes []byte) (cid.Cid, map[string]cid.Cid, error) {
	if len(r.Backends) == 0 {
		return cid.Undef, nil, ErrNoAdapters
	}
	want, err := cidutil.CIDv1RawSHA256CID(bytes)
	if err != nil {
		return cid.Undef, nil, err
	}

	got := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.CAS == nil {
			return cid.Undef, got, fmt.Errorf("storage: mirror %q has no backend", b.Name)
		}
		id, err := b.CAS.Put(bytes)
		if err != nil {
			return cid.Undef, got, fmt.Errorf("storage: mirror %q: %w", b.Name, err)
		}
		got[b.Name] = id
		if !id.Equals(want) {
			return cid.Undef, got, ErrCIDMismatch
		}
	}
	return want, got, nil
}

func (r ReplicatingCAS) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(id)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, fmt.Errorf("storage: mirror %q: %w", b.Name, err)
		}
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
