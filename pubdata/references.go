package pubdata

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// utf8Marker prefixes octet-string references that carry UTF-8 text.
var utf8Marker = []byte{0x00, 0x01}

// ParseReferences decodes the references block: a SET OF OCTET STRING (or
// UTF8String) naming the printed media where publications appeared. Bytes
// after the set are ignored, the block may be padded up to the signature.
func ParseReferences(der []byte) ([]string, error) {
	in := cryptobyte.String(der)
	var set cryptobyte.String
	if !in.ReadASN1(&set, asn1.SET) {
		return nil, fmt.Errorf("%w: references set", ErrMalformed)
	}
	var refs []string
	for !set.Empty() {
		var (
			item cryptobyte.String
			tag  asn1.Tag
		)
		if !set.ReadAnyASN1(&item, &tag) {
			return nil, fmt.Errorf("%w: reference %d", ErrMalformed, len(refs))
		}
		switch tag {
		case asn1.OCTET_STRING:
			b := []byte(item)
			if len(b) >= 2 && b[0] == utf8Marker[0] && b[1] == utf8Marker[1] {
				b = b[2:]
			}
			refs = append(refs, string(b))
		case asn1.UTF8String:
			if !utf8.Valid(item) {
				return nil, fmt.Errorf("%w: reference %d is not UTF-8", ErrMalformed, len(refs))
			}
			refs = append(refs, string(item))
		default:
			return nil, fmt.Errorf("%w: reference %d has tag %d", ErrMalformed, len(refs), tag)
		}
	}
	return refs, nil
}

// MarshalReferences is the inverse of ParseReferences, writing each entry as
// a marked octet string.
func MarshalReferences(refs []string) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SET, func(b *cryptobyte.Builder) {
		for _, r := range refs {
			b.AddASN1(asn1.OCTET_STRING, func(b *cryptobyte.Builder) {
				b.AddBytes(utf8Marker)
				b.AddBytes([]byte(r))
			})
		}
	})
	return b.Bytes()
}
