// Package testkit holds conformance checks every storage.CAS implementation
// must pass.
package testkit

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubfile"
	"github.com/zcyzhu/node-guardtime/pubfile/pubfiletest"
	"github.com/zcyzhu/node-guardtime/storage"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

// RunCASConformance checks the raw byte contract of a CAS.
func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("publications archive round trip")

		id, err := cas.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cidutil.Matches(id, want) {
			t.Fatalf("Put returned CID %s not derived from the bytes", id)
		}

		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}

		if cas.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Get(id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := cas.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if cas.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("PublicationsFile", func(t *testing.T) {
		RunArchiveConformance(t, newCAS(t))
	})
}

// RunArchiveConformance stores a signed publications file in cas and reads
// it back through the decoding helpers.
func RunArchiveConformance(t *testing.T, cas storage.CAS) {
	t.Helper()

	b := &pubfiletest.Builder{
		Publications: pubfiletest.Daily(1262304000, 10, hashalg.SHA256),
		References:   []string{"archive conformance"},
	}
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	id, err := storage.PutPublicationsFile(cas, data)
	if err != nil {
		t.Fatalf("PutPublicationsFile failed: %v", err)
	}
	f, err := storage.LoadPublicationsFile(cas, id, pubfile.Options{LazyPublications: true})
	if err != nil {
		t.Fatalf("LoadPublicationsFile failed: %v", err)
	}
	fid, err := f.CID()
	if err != nil || fid != id {
		t.Fatalf("loaded file CID = %s, %v; want %s", fid, err, id)
	}
	if f.PublicationCount() != 10 {
		t.Fatalf("PublicationCount = %d", f.PublicationCount())
	}

	garbage := []byte{0x00, 0x01, 0x02}
	if _, err := storage.PutPublicationsFile(cas, garbage); !pubfile.IsKind(err, pubfile.KindInvalidFormat) {
		t.Fatalf("PutPublicationsFile(garbage): got %v want InvalidFormat", err)
	}
	gid, _ := cidutil.CIDv1RawSHA256CID(garbage)
	if cas.Has(gid) {
		t.Fatalf("rejected file was stored")
	}
	if _, err := storage.LoadPublicationsFile(cas, cid.Undef, pubfile.Options{}); err != storage.ErrInvalidCID {
		t.Fatalf("LoadPublicationsFile(undef): got %v", err)
	}
}
