// Package pubdata holds the published data value (a publication identifier
// bound to an imprint) and its DER and human-readable text forms, plus the
// references block that lists where publications were printed.
package pubdata

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/zcyzhu/node-guardtime/hashalg"
)

var (
	ErrMalformed  = errors.New("pubdata: malformed encoding")
	ErrChecksum   = errors.New("pubdata: checksum mismatch")
	ErrIdentifier = errors.New("pubdata: identifier out of range")
)

// PublishedData binds a publication identifier (seconds since the Unix
// epoch) to the imprint committed at that time.
type PublishedData struct {
	Identifier uint64
	Imprint    hashalg.Imprint
}

// Validate checks the imprint against the hash algorithm registry.
func (p PublishedData) Validate() error {
	return p.Imprint.Validate()
}

// MarshalDER encodes p as SEQUENCE { INTEGER, OCTET STRING }.
func (p PublishedData) MarshalDER() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Uint64(p.Identifier)
		b.AddASN1OctetString(p.Imprint)
	})
	return b.Bytes()
}

// ParseDER decodes the output of MarshalDER. Trailing bytes are rejected.
func ParseDER(der []byte) (PublishedData, error) {
	in := cryptobyte.String(der)
	var seq cryptobyte.String
	if !in.ReadASN1(&seq, asn1.SEQUENCE) || !in.Empty() {
		return PublishedData{}, fmt.Errorf("%w: published data sequence", ErrMalformed)
	}
	var (
		id uint64
		im []byte
	)
	if !seq.ReadASN1Integer(&id) {
		return PublishedData{}, fmt.Errorf("%w: publication identifier", ErrMalformed)
	}
	if !seq.ReadASN1Bytes(&im, asn1.OCTET_STRING) || !seq.Empty() {
		return PublishedData{}, fmt.Errorf("%w: publication imprint", ErrMalformed)
	}
	p := PublishedData{Identifier: id, Imprint: append(hashalg.Imprint(nil), im...)}
	if err := p.Validate(); err != nil {
		return PublishedData{}, err
	}
	return p, nil
}
