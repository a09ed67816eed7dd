package hashalg

import (
	"bytes"
	"fmt"

	"github.com/multiformats/go-multihash"
)

// Multicodec codes for algorithms that go-multihash has no named constant for.
const (
	mhSHA1      = multihash.SHA1
	mhSHA2_256  = multihash.SHA2_256
	mhSHA2_512  = multihash.SHA2_512
	mhSHA3_224  = multihash.SHA3_224
	mhSHA3_256  = multihash.SHA3_256
	mhSHA3_384  = multihash.SHA3_384
	mhSHA3_512  = multihash.SHA3_512
	mhSHA2_224  = 0x1013
	mhSHA2_384  = 0x20
	mhRIPEMD160 = 0x1053
)

// Imprint is an algorithm identifier byte followed by a digest of the
// length that algorithm produces.
type Imprint []byte

// NewImprint joins id and digest, checking the digest length.
func NewImprint(id ID, digest []byte) (Imprint, error) {
	size := id.Size()
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, uint8(id))
	}
	if len(digest) != size {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrImprintSize, id, size, len(digest))
	}
	im := make(Imprint, 1+size)
	im[0] = byte(id)
	copy(im[1:], digest)
	return im, nil
}

// Compute hashes data with id and returns the imprint.
func Compute(id ID, data []byte) (Imprint, error) {
	d, err := Sum(id, data)
	if err != nil {
		return nil, err
	}
	return NewImprint(id, d)
}

// ImprintLen returns 1 plus the digest size for the algorithm in first,
// or an error when the algorithm is unknown.
func ImprintLen(first byte) (int, error) {
	size := ID(first).Size()
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnsupported, first)
	}
	return 1 + size, nil
}

func (im Imprint) Algorithm() ID {
	if len(im) == 0 {
		return 0
	}
	return ID(im[0])
}

func (im Imprint) Digest() []byte {
	if len(im) == 0 {
		return nil
	}
	return im[1:]
}

// Validate checks the algorithm byte and the digest length.
func (im Imprint) Validate() error {
	if len(im) < 1 {
		return ErrImprintShort
	}
	n, err := ImprintLen(im[0])
	if err != nil {
		return err
	}
	if len(im) != n {
		return fmt.Errorf("%w: %s wants %d bytes, got %d", ErrImprintSize, im.Algorithm(), n-1, len(im)-1)
	}
	return nil
}

// Matches reports whether im is the imprint of data.
func (im Imprint) Matches(data []byte) (bool, error) {
	if err := im.Validate(); err != nil {
		return false, err
	}
	d, err := Sum(im.Algorithm(), data)
	if err != nil {
		return false, err
	}
	return bytes.Equal(d, im.Digest()), nil
}

// Multihash re-encodes the imprint as a self-describing multihash.
func (im Imprint) Multihash() (multihash.Multihash, error) {
	if err := im.Validate(); err != nil {
		return nil, err
	}
	return multihash.Encode(im.Digest(), registry[im.Algorithm()].mhCode)
}

// ImprintFromMultihash is the inverse of Imprint.Multihash.
func ImprintFromMultihash(mh []byte) (Imprint, error) {
	dec, err := multihash.Decode(mh)
	if err != nil {
		return nil, err
	}
	for _, id := range IDs() {
		if registry[id].mhCode == dec.Code {
			return NewImprint(id, dec.Digest)
		}
	}
	return nil, fmt.Errorf("%w: multihash code 0x%x", ErrUnsupported, dec.Code)
}
