package storage_test

import (
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/storage"
	"github.com/zcyzhu/node-guardtime/storage/testkit"
)

// mapCAS is an in-memory CAS used to exercise MultiCAS without touching disk.
type mapCAS struct {
	objects map[string][]byte
	getErr  error
}

func newMapCAS() *mapCAS { return &mapCAS{objects: map[string][]byte{}} }

func (m *mapCAS) Put(b []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return cid.Undef, err
	}
	if existing, ok := m.objects[id.KeyString()]; ok && string(existing) != string(b) {
		return cid.Undef, storage.ErrImmutable
	}
	m.objects[id.KeyString()] = append([]byte(nil), b...)
	return id, nil
}

func (m *mapCAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.objects[id.KeyString()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *mapCAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, ok := m.objects[id.KeyString()]
	return ok
}

func TestMultiCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.MultiCAS{Adapters: []storage.CAS{newMapCAS(), newMapCAS()}}
	})
}

func TestMultiCAS_OrderAndErrors(t *testing.T) {
	first, second := newMapCAS(), newMapCAS()
	id, err := second.Put([]byte("b"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	m := storage.MultiCAS{Adapters: []storage.CAS{first, second}}
	if got, err := m.Get(id); err != nil || string(got) != "b" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	boom := errors.New("disk on fire")
	first.getErr = boom
	if _, err := m.Get(id); !errors.Is(err, boom) {
		t.Fatalf("expected first adapter error to stop lookup, got %v", err)
	}

	if _, err := (storage.MultiCAS{}).Put([]byte("x")); !errors.Is(err, storage.ErrNoAdapters) {
		t.Fatalf("empty MultiCAS Put: got %v", err)
	}
}

type skewCAS struct{ *mapCAS }

func (s skewCAS) Put(b []byte) (cid.Cid, error) {
	return s.mapCAS.Put(append(append([]byte(nil), b...), '!'))
}

func TestReplicatingCAS(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.ReplicatingCAS{Backends: []storage.NamedCAS{
			{Name: "a", CAS: newMapCAS()},
			{Name: "b", CAS: newMapCAS()},
		}}
	})

	a, b := newMapCAS(), newMapCAS()
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{{Name: "a", CAS: a}, {Name: "b", CAS: b}}}
	id, per, err := r.PutAll([]byte("copy"))
	if err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	if !a.Has(id) || !b.Has(id) || len(per) != 2 {
		t.Fatalf("expected both backends written, got %v", per)
	}

	bad := storage.ReplicatingCAS{Backends: []storage.NamedCAS{{Name: "a", CAS: newMapCAS()}, {Name: "skew", CAS: skewCAS{newMapCAS()}}}}
	if _, err := bad.Put([]byte("copy")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}

	if _, err := (storage.ReplicatingCAS{}).Put([]byte("x")); !errors.Is(err, storage.ErrNoAdapters) {
		t.Fatalf("empty ReplicatingCAS Put: got %v", err)
	}
}
