package pubfile_test

import (
	"bytes"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/compliance"
	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubfile"
	"github.com/zcyzhu/node-guardtime/pubfile/pubfiletest"
)

const firstPublication = 1262304000 // 2010-01-01T00:00:00Z

func defaultPKI(t *testing.T) *pubfiletest.PKI {
	t.Helper()
	pki, err := pubfiletest.DefaultPKI()
	if err != nil {
		t.Fatalf("DefaultPKI: %v", err)
	}
	return pki
}

func testAnchor(t *testing.T, pki *pubfiletest.PKI) pubfile.TrustAnchor {
	t.Helper()
	return pubfile.TrustAnchor{RootCertificate: pki.RootDER(), SignerEmail: pubfiletest.DefaultEmail}
}

func sampleBuilder() *pubfiletest.Builder {
	return &pubfiletest.Builder{
		Publications: pubfiletest.Daily(firstPublication, 30, hashalg.SHA256),
		KeyHashes: []pubfiletest.Entry{
			{Time: firstPublication - 86400, Imprint: mustImprint(hashalg.SHA256, "key 1")},
			{Time: firstPublication + 10*86400, Imprint: mustImprint(hashalg.SHA1, "key 2")},
		},
		References: []string{"Financial Times, ISSN: 0307-1766, 2010-01-01"},
	}
}

func mustImprint(alg hashalg.ID, s string) []byte {
	im, err := hashalg.Compute(alg, []byte(s))
	if err != nil {
		panic(err)
	}
	return im
}

func build(t *testing.T, b *pubfiletest.Builder) []byte {
	t.Helper()
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

func decode(t *testing.T, data []byte, opts pubfile.Options) *pubfile.File {
	t.Helper()
	f, err := pubfile.DecodeWithOptions(data, opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return f
}

func expectKind(t *testing.T, err error, kind pubfile.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error", kind)
	}
	var e *pubfile.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected structured *pubfile.Error, got %T: %v", err, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected %s, got %s (%s: %v)", kind, e.Kind, e.RuleID, err)
	}
}

func TestDecode_Accessors(t *testing.T) {
	data := build(t, sampleBuilder())
	f := decode(t, data, pubfile.Options{})

	if f.PublicationCount() != 30 || f.KeyHashCount() != 2 {
		t.Fatalf("counts = %d, %d", f.PublicationCount(), f.KeyHashCount())
	}
	h := f.Header()
	if h.Version != pubfile.CurrentVersion || h.FirstPublicationIdent != firstPublication {
		t.Fatalf("unexpected header %+v", h)
	}
	if refs := f.References(); len(refs) != 1 || refs[0] != "Financial Times, ISSN: 0307-1766, 2010-01-01" {
		t.Fatalf("references = %q", refs)
	}
	if !bytes.Equal(f.Bytes(), data) {
		t.Fatalf("Bytes differs from input")
	}
	if !bytes.Equal(f.SignedBytes(), data[:h.SignatureBegin]) {
		t.Fatalf("SignedBytes differs from signed prefix")
	}
	c, err := f.CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if c.String() != cidutil.CIDv1RawSHA256(data) {
		t.Fatalf("CID mismatch")
	}
}

func TestDecode_OwnsPrivateCopy(t *testing.T) {
	data := build(t, sampleBuilder())
	f := decode(t, data, pubfile.Options{})
	before, err := f.PublicationByIndex(0)
	if err != nil {
		t.Fatalf("PublicationByIndex: %v", err)
	}
	for i := range data {
		data[i] = 0
	}
	after, err := f.PublicationByIndex(0)
	if err != nil {
		t.Fatalf("PublicationByIndex after overwrite: %v", err)
	}
	if before != after {
		t.Fatalf("decoded file changed when caller buffer was overwritten")
	}
}

func TestDecode_UntrustedAlgorithmInTable(t *testing.T) {
	b := sampleBuilder()
	bad := append([]byte(nil), b.Publications[4].Imprint...)
	bad[0] = 6
	b.Publications[4].Imprint = bad
	data := build(t, b)

	_, err := pubfile.Decode(data)
	expectKind(t, err, pubfile.KindUntrustedHashAlgorithm)

	// Lazy decoding defers the failure to the query that touches the cell.
	f := decode(t, data, pubfile.Options{LazyPublications: true})
	if _, err := f.PublicationByIndex(3); err != nil {
		t.Fatalf("PublicationByIndex(3): %v", err)
	}
	_, err = f.PublicationByIndex(4)
	expectKind(t, err, pubfile.KindUntrustedHashAlgorithm)
}

func TestDecode_ImprintWiderThanCell(t *testing.T) {
	b := sampleBuilder()
	b.PublicationCellSize = 8 + 21
	_, err := pubfile.Decode(build(t, b))
	expectKind(t, err, pubfile.KindInvalidFormat)
	if pubfile.RuleID(err) != "PUBFILE-CELL-005" {
		t.Fatalf("RuleID = %s", pubfile.RuleID(err))
	}
}

func TestDecode_MalformedReferences(t *testing.T) {
	data, l, err := sampleBuilder().BuildWithLayout()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data[l.ReferencesBegin] = 0x04
	_, err = pubfile.Decode(data)
	expectKind(t, err, pubfile.KindInvalidFormat)
	if pubfile.RuleID(err) != "PUBFILE-REF-001" {
		t.Fatalf("RuleID = %s", pubfile.RuleID(err))
	}
}

func TestDecode_MalformedSignature(t *testing.T) {
	data, l, err := sampleBuilder().BuildWithLayout()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data = append(data[:l.SignatureBegin], 0x30, 0x00)
	_, err = pubfile.Decode(data)
	expectKind(t, err, pubfile.KindInvalidFormat)
	if pubfile.RuleID(err) != "PUBFILE-SIG-001" {
		t.Fatalf("RuleID = %s", pubfile.RuleID(err))
	}
}

func TestDecode_WrongVersion(t *testing.T) {
	b := sampleBuilder()
	b.Version = 2
	_, err := pubfile.Decode(build(t, b))
	expectKind(t, err, pubfile.KindUnsupportedFormat)
}

func TestDecode_StrictRejectsDuplicates(t *testing.T) {
	b := sampleBuilder()
	b.Publications[7].Time = b.Publications[6].Time
	data := build(t, b)

	_, err := pubfile.DecodeWithOptions(data, pubfile.Options{Mode: compliance.Strict})
	expectKind(t, err, pubfile.KindInvalidFormat)
	if pubfile.RuleID(err) != "PUBFILE-CELL-010" {
		t.Fatalf("RuleID = %s", pubfile.RuleID(err))
	}

	// Strict overrides lazy decoding.
	_, err = pubfile.DecodeWithOptions(data, pubfile.Options{Mode: compliance.Strict, LazyPublications: true})
	expectKind(t, err, pubfile.KindInvalidFormat)

	// Permissive accepts the file and returns the first match.
	f := decode(t, data, pubfile.Options{})
	want, err := f.PublicationByIndex(6)
	if err != nil {
		t.Fatalf("PublicationByIndex: %v", err)
	}
	got, err := f.PublicationByTime(b.Publications[6].Time)
	if err != nil {
		t.Fatalf("PublicationByTime: %v", err)
	}
	if got != want {
		t.Fatalf("expected first duplicate, got %s want %s", got, want)
	}
}

func TestSigningCertificate(t *testing.T) {
	pki := defaultPKI(t)
	f := decode(t, build(t, sampleBuilder()), pubfile.Options{})
	der, err := f.SigningCertificate()
	if err != nil {
		t.Fatalf("SigningCertificate: %v", err)
	}
	if !bytes.Equal(der, pki.Signer.Raw) {
		t.Fatalf("signing certificate differs from signer")
	}
}

func TestSigningCertificate_TwoSigners(t *testing.T) {
	pki := defaultPKI(t)
	second, err := pki.WithSigner(pubfiletest.DefaultEmail)
	if err != nil {
		t.Fatalf("WithSigner: %v", err)
	}
	b := sampleBuilder()
	b.ExtraSigner = second
	f := decode(t, build(t, b), pubfile.Options{})

	_, err = f.SigningCertificate()
	expectKind(t, err, pubfile.KindInvalidFormat)

	_, err = f.VerifyWithAnchor(testAnchor(t, pki))
	expectKind(t, err, pubfile.KindInvalidSignature)
}

func pemBlock(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
