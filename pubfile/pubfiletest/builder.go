// Package pubfiletest builds signed publications files for tests and local
// experiments.
package pubfiletest

import (
	"encoding/binary"
	"fmt"

	"go.mozilla.org/pkcs7"

	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubdata"
)

const headerSize = 36

// Entry is a publication (Time is the identifier) or a key hash (Time is
// the key publication time).
type Entry struct {
	Time    int64
	Imprint []byte
}

// Builder lays out and signs a publications file. Zero fields take
// consistent defaults, so Builder{Publications: Daily(...)} is enough for
// a valid file.
type Builder struct {
	Version    uint16 // default 1
	FirstIdent int64  // default Publications[0].Time

	// Cell sizes default to 8 plus the longest imprint in the table.
	// Imprints longer than the cell are truncated.
	PublicationCellSize int
	KeyHashCellSize     int

	Publications []Entry
	KeyHashes    []Entry
	References   []string

	// PKI signs the file; nil selects DefaultPKI.
	PKI *PKI
	// ExtraSigner adds a second signer to the signature.
	ExtraSigner *PKI
}

// Daily returns n publications spaced one day apart starting at start,
// each with an imprint of alg over its index.
func Daily(start int64, n int, alg hashalg.ID) []Entry {
	out := make([]Entry, n)
	for i := range out {
		im, err := hashalg.Compute(alg, []byte(fmt.Sprintf("calendar root %d", i)))
		if err != nil {
			panic(err)
		}
		out[i] = Entry{Time: start + int64(i)*86400, Imprint: im}
	}
	return out
}

// Layout reports the region offsets of a built file.
type Layout struct {
	DataBlockBegin  int
	KeyHashesBegin  int
	ReferencesBegin int
	SignatureBegin  int
}

// Build returns the file bytes.
func (b *Builder) Build() ([]byte, error) {
	data, _, err := b.BuildWithLayout()
	return data, err
}

// BuildWithLayout returns the file bytes and where each region starts.
func (b *Builder) BuildWithLayout() ([]byte, Layout, error) {
	pki := b.PKI
	if pki == nil {
		var err error
		if pki, err = DefaultPKI(); err != nil {
			return nil, Layout{}, err
		}
	}
	version := b.Version
	if version == 0 {
		version = 1
	}
	first := b.FirstIdent
	if first == 0 && len(b.Publications) > 0 {
		first = b.Publications[0].Time
	}
	pubSize := cellSize(b.PublicationCellSize, b.Publications)
	khSize := cellSize(b.KeyHashCellSize, b.KeyHashes)

	refs, err := pubdata.MarshalReferences(b.References)
	if err != nil {
		return nil, Layout{}, err
	}

	var l Layout
	l.DataBlockBegin = headerSize
	l.KeyHashesBegin = l.DataBlockBegin + pubSize*len(b.Publications)
	l.ReferencesBegin = l.KeyHashesBegin + khSize*len(b.KeyHashes)
	l.SignatureBegin = l.ReferencesBegin + len(refs)

	buf := make([]byte, l.SignatureBegin)
	binary.BigEndian.PutUint16(buf[0:], version)
	binary.BigEndian.PutUint64(buf[2:], uint64(first))
	binary.BigEndian.PutUint32(buf[10:], uint32(l.DataBlockBegin))
	binary.BigEndian.PutUint16(buf[14:], uint16(pubSize))
	binary.BigEndian.PutUint32(buf[16:], uint32(len(b.Publications)))
	binary.BigEndian.PutUint32(buf[20:], uint32(l.KeyHashesBegin))
	binary.BigEndian.PutUint16(buf[24:], uint16(khSize))
	binary.BigEndian.PutUint16(buf[26:], uint16(len(b.KeyHashes)))
	binary.BigEndian.PutUint32(buf[28:], uint32(l.ReferencesBegin))
	binary.BigEndian.PutUint32(buf[32:], uint32(l.SignatureBegin))

	writeCells(buf[l.DataBlockBegin:], pubSize, b.Publications)
	writeCells(buf[l.KeyHashesBegin:], khSize, b.KeyHashes)
	copy(buf[l.ReferencesBegin:], refs)

	sig, err := Sign(buf, pki, b.ExtraSigner)
	if err != nil {
		return nil, Layout{}, err
	}
	return append(buf, sig...), l, nil
}

// Sign produces a detached PKCS#7 signature over content by pki's signer,
// plus extra's signer when extra is not nil.
func Sign(content []byte, pki, extra *PKI) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, err
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(pki.Signer, pki.SignerKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, err
	}
	if extra != nil {
		if err := sd.AddSigner(extra.Signer, extra.SignerKey, pkcs7.SignerInfoConfig{}); err != nil {
			return nil, err
		}
	}
	sd.Detach()
	return sd.Finish()
}

func cellSize(explicit int, entries []Entry) int {
	if explicit > 0 {
		return explicit
	}
	longest := 1 + hashalg.SHA256.Size()
	for _, e := range entries {
		if len(e.Imprint) > longest {
			longest = len(e.Imprint)
		}
	}
	return 8 + longest
}

func writeCells(dst []byte, size int, entries []Entry) {
	for i, e := range entries {
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(e.Time))
		c := dst[i*size : (i+1)*size]
		n := copy(c, ts[:])
		if n == len(ts) {
			copy(c[n:], e.Imprint)
		}
	}
}
