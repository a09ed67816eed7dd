package bundle_test

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubfile/pubfiletest"
	"github.com/zcyzhu/node-guardtime/storage"
	"github.com/zcyzhu/node-guardtime/storage/bundle"
	"github.com/zcyzhu/node-guardtime/storage/localfs"
)

func publications(t *testing.T, n int) []byte {
	t.Helper()
	data, err := (&pubfiletest.Builder{Publications: pubfiletest.Daily(1262304000, n, hashalg.SHA256)}).Build()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newArchive(t *testing.T) *localfs.CAS {
	t.Helper()
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return cas
}

func TestBundle_ExportIsDeterministic(t *testing.T) {
	cas := newArchive(t)
	id1, err := storage.PutPublicationsFile(cas, publications(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := storage.PutPublicationsFile(cas, publications(t, 5))
	if err != nil {
		t.Fatal(err)
	}
	opts := bundle.ExportOptions{IncludeIndex: true, Labels: map[string]cid.Cid{"latest.bin": id2}}

	var outA, outB bytes.Buffer
	if err := bundle.Export(&outA, cas, []cid.Cid{id2, id1}, opts); err != nil {
		t.Fatal(err)
	}
	if err := bundle.Export(&outB, cas, []cid.Cid{id1, id2, id1}, opts); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(outA.Bytes(), outB.Bytes()) {
		t.Fatalf("expected deterministic bundle bytes")
	}

	tr := tar.NewReader(bytes.NewReader(outA.Bytes()))
	var names []string
	var idx struct {
		Files []struct {
			CID          string `json:"cid"`
			Publications int    `json:"publications"`
		} `json:"files"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
	}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, h.Name)
		if !h.ModTime.Equal(time.Unix(0, 0)) {
			t.Fatalf("%s: ModTime %v", h.Name, h.ModTime)
		}
		if h.Name == "index.json" {
			if err := json.NewDecoder(tr).Decode(&idx); err != nil {
				t.Fatal(err)
			}
		}
	}
	if len(names) != 3 || names[2] != "index.json" || !strings.HasPrefix(names[0], "publications/") {
		t.Fatalf("unexpected entries %v", names)
	}
	if len(idx.Files) != 2 || len(idx.Labels) != 1 || idx.Labels[0].Name != "latest.bin" {
		t.Fatalf("unexpected index %+v", idx)
	}
}

func TestBundle_ImportRoundTrip(t *testing.T) {
	src := newArchive(t)
	payload := publications(t, 4)
	id, err := storage.PutPublicationsFile(src, payload)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := bundle.Export(&buf, src, []cid.Cid{id}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}

	dst := newArchive(t)
	got, err := bundle.Import(bytes.NewReader(buf.Bytes()), dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Equals(id) {
		t.Fatalf("imported %v, want [%s]", got, id)
	}
	b, err := dst.Get(id)
	if err != nil || !bytes.Equal(b, payload) {
		t.Fatalf("payload mismatch (%v)", err)
	}
}

func TestBundle_ExportRefusesNonPublications(t *testing.T) {
	cas := newArchive(t)
	id, err := cas.Put([]byte("plain bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if err := bundle.Export(io.Discard, cas, []cid.Cid{id}, bundle.ExportOptions{}); err == nil {
		t.Fatalf("expected export of a non-publications object to fail")
	}
}

func TestBundle_ImportRejectsCIDMismatch(t *testing.T) {
	good := publications(t, 2)
	otherCID, err := cidutil.CIDv1RawSHA256CID([]byte("other"))
	if err != nil {
		t.Fatal(err)
	}

	// Entry name says otherCID but the bytes hash differently.
	bundleBytes := makeTar(t, "publications/"+otherCID.String()+".bin", good)
	if _, err := bundle.Import(bytes.NewReader(bundleBytes), newArchive(t)); err != storage.ErrCIDMismatch {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}

func TestBundle_ImportUnknownEntries(t *testing.T) {
	bundleBytes := makeTar(t, "notes/readme.txt", []byte("hi"))
	if _, err := bundle.Import(bytes.NewReader(bundleBytes), newArchive(t)); err == nil {
		t.Fatalf("expected unknown entry to fail closed")
	}
	got, err := bundle.ImportWithOptions(bytes.NewReader(bundleBytes), newArchive(t), bundle.ImportOptions{IgnoreUnknown: true})
	if err != nil || len(got) != 0 {
		t.Fatalf("IgnoreUnknown: got %v, %v", got, err)
	}

	if _, err := bundle.Import(bytes.NewReader(makeTar(t, "../escape.bin", []byte("x"))), newArchive(t)); err == nil {
		t.Fatalf("expected path traversal to be rejected")
	}
}

func makeTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(h); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
