// Package cidutil derives the content identifiers publications files are
// archived under.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	c, err := CIDv1RawSHA256CID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return c.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Parse decodes s and requires the raw codec, which is the only codec
// used for archived files.
func Parse(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if c.Type() != cid.Raw {
		return cid.Undef, fmt.Errorf("cid %s: codec 0x%x is not raw", s, c.Type())
	}
	return c, nil
}

// Matches reports whether data hashes to c. Only sha2-256 multihashes are
// recognized.
func Matches(c cid.Cid, data []byte) bool {
	want, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return false
	}
	return c.Equals(want)
}
