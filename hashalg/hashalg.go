// Package hashalg is the registry of hash algorithms that may appear in
// imprints: a one-byte algorithm identifier followed by the digest.
//
// Identifiers 0 to 5 form the trusted set accepted in publications file
// cells (see Trusted). The SHA-3 identifiers 7 to 10 are registered for
// hashing and multihash conversion only.
package hashalg

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// ID is the one-byte algorithm identifier that prefixes every imprint.
type ID uint8

const (
	SHA1      ID = 0
	SHA256    ID = 1
	RIPEMD160 ID = 2
	SHA224    ID = 3
	SHA384    ID = 4
	SHA512    ID = 5
	SHA3_224  ID = 7
	SHA3_256  ID = 8
	SHA3_384  ID = 9
	SHA3_512  ID = 10
)

var (
	ErrUnsupported  = errors.New("hashalg: unsupported hash algorithm")
	ErrImprintShort = errors.New("hashalg: imprint too short")
	ErrImprintSize  = errors.New("hashalg: digest length does not match algorithm")
)

type algorithm struct {
	name   string
	size   int
	mhCode uint64
	newFn  func() hash.Hash
}

var registry = map[ID]algorithm{
	SHA1:      {"SHA-1", sha1.Size, mhSHA1, sha1.New},
	SHA256:    {"SHA-256", sha256.Size, mhSHA2_256, sha256.New},
	RIPEMD160: {"RIPEMD-160", ripemd160.Size, mhRIPEMD160, ripemd160.New},
	SHA224:    {"SHA-224", sha256.Size224, mhSHA2_224, sha256.New224},
	SHA384:    {"SHA-384", sha512.Size384, mhSHA2_384, sha512.New384},
	SHA512:    {"SHA-512", sha512.Size, mhSHA2_512, sha512.New},
	SHA3_224:  {"SHA3-224", 28, mhSHA3_224, sha3.New224},
	SHA3_256:  {"SHA3-256", 32, mhSHA3_256, sha3.New256},
	SHA3_384:  {"SHA3-384", 48, mhSHA3_384, sha3.New384},
	SHA3_512:  {"SHA3-512", 64, mhSHA3_512, sha3.New512},
}

// IDs returns every supported identifier in ascending order.
func IDs() []ID {
	return []ID{SHA1, SHA256, RIPEMD160, SHA224, SHA384, SHA512, SHA3_224, SHA3_256, SHA3_384, SHA3_512}
}

// Supported reports whether id names an algorithm this package can hash with.
func (id ID) Supported() bool {
	_, ok := registry[id]
	return ok
}

// Trusted reports whether id may appear in a publications file cell.
func (id ID) Trusted() bool {
	return id <= SHA512
}

// Size returns the digest length in bytes, or -1 when id is unsupported.
func (id ID) Size() int {
	a, ok := registry[id]
	if !ok {
		return -1
	}
	return a.size
}

func (id ID) String() string {
	if a, ok := registry[id]; ok {
		return a.name
	}
	return fmt.Sprintf("hashalg(%d)", uint8(id))
}

// New returns a fresh hash.Hash for id.
func (id ID) New() (hash.Hash, error) {
	a, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, uint8(id))
	}
	return a.newFn(), nil
}

// Sum hashes data with id and returns the bare digest.
func Sum(id ID, data []byte) ([]byte, error) {
	h, err := id.New()
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// ParseName resolves a case-sensitive algorithm name as returned by String.
func ParseName(name string) (ID, error) {
	for _, id := range IDs() {
		if registry[id].name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, name)
}
