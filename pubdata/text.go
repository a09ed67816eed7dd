package pubdata

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"strings"
	"unicode"

	"github.com/multiformats/go-base32"

	"github.com/zcyzhu/node-guardtime/hashalg"
)

// PublicationGroup is the dash spacing used in publication strings.
const PublicationGroup = 6

// CertificateGroup is the dash spacing used for certificate text.
const CertificateGroup = 8

var rawBase32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// EncodeGrouped renders data as unpadded RFC 4648 base-32, inserting a dash
// after every group characters. A group of 0 disables grouping.
func EncodeGrouped(data []byte, group int) string {
	s := rawBase32.EncodeToString(data)
	if group <= 0 || len(s) <= group {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/group)
	for i := 0; i < len(s); i += group {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := i + group
		if end > len(s) {
			end = len(s)
		}
		sb.WriteString(s[i:end])
	}
	return sb.String()
}

// DecodeGrouped accepts the output of EncodeGrouped. Dashes, whitespace and
// padding are ignored and letters are matched case-insensitively.
func DecodeGrouped(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if r == '-' || r == '=' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
	out, err := rawBase32.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// Binary returns identifier || imprint || CRC-32, the byte string that the
// publication text encodes.
func (p PublishedData) Binary() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 8, 8+len(p.Imprint)+4)
	binary.BigEndian.PutUint64(buf, p.Identifier)
	buf = append(buf, p.Imprint...)
	return appendChecksum(buf), nil
}

func appendChecksum(body []byte) []byte {
	return binary.BigEndian.AppendUint32(body, crc32.ChecksumIEEE(body))
}

// Text returns the dash-grouped publication string for p.
func (p PublishedData) Text() (string, error) {
	raw, err := p.Binary()
	if err != nil {
		return "", err
	}
	return EncodeGrouped(raw, PublicationGroup), nil
}

// ParseText decodes a publication string produced by Text.
func ParseText(s string) (PublishedData, error) {
	raw, err := DecodeGrouped(s)
	if err != nil {
		return PublishedData{}, err
	}
	return ParseBinary(raw)
}

// ParseBinary decodes the output of Binary and checks its checksum.
func ParseBinary(raw []byte) (PublishedData, error) {
	if len(raw) < 8+1+4 {
		return PublishedData{}, fmt.Errorf("%w: publication too short (%d bytes)", ErrMalformed, len(raw))
	}
	body, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	if crc32.ChecksumIEEE(body) != binary.BigEndian.Uint32(sum) {
		return PublishedData{}, ErrChecksum
	}
	imLen, err := hashalg.ImprintLen(body[8])
	if err != nil {
		return PublishedData{}, err
	}
	if len(body) != 8+imLen {
		return PublishedData{}, fmt.Errorf("%w: publication length %d does not fit %s", ErrMalformed, len(raw), hashalg.ID(body[8]))
	}
	p := PublishedData{
		Identifier: binary.BigEndian.Uint64(body[:8]),
		Imprint:    append(hashalg.Imprint(nil), body[8:]...),
	}
	return p, nil
}

// Time returns the identifier as Unix seconds. Identifiers that do not fit
// in an int64 are rejected.
func (p PublishedData) Time() (int64, error) {
	if p.Identifier > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", ErrIdentifier, p.Identifier)
	}
	return int64(p.Identifier), nil
}
