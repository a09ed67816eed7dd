package pubdata

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zcyzhu/node-guardtime/hashalg"
)

func samplePublication(t *testing.T, id uint64, alg hashalg.ID) PublishedData {
	t.Helper()
	im, err := hashalg.Compute(alg, []byte("calendar root"))
	require.NoError(t, err)
	return PublishedData{Identifier: id, Imprint: im}
}

func TestDERRoundTrip(t *testing.T) {
	p := samplePublication(t, 1262304000, hashalg.SHA256)
	der, err := p.MarshalDER()
	require.NoError(t, err)
	require.Equal(t, byte(0x30), der[0])

	back, err := ParseDER(der)
	require.NoError(t, err)
	require.Equal(t, p, back)

	_, err = ParseDER(append(der, 0))
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestTextShape(t *testing.T) {
	p := samplePublication(t, 1262304000, hashalg.SHA256)
	s, err := p.Text()
	require.NoError(t, err)

	// 8 + 33 + 4 bytes is exactly 72 base-32 characters, twelve groups of six.
	groups := strings.Split(s, "-")
	require.Len(t, groups, 12)
	for _, g := range groups {
		require.Len(t, g, PublicationGroup)
	}

	back, err := ParseText(s)
	require.NoError(t, err)
	require.Equal(t, p, back)

	// Lower case, whitespace and missing dashes are tolerated.
	loose := strings.ToLower(strings.ReplaceAll(s, "-", "")) + "\n"
	back, err = ParseText(loose)
	require.NoError(t, err)
	require.Equal(t, p, back)
}

func TestTextUnpaddedLengths(t *testing.T) {
	for _, alg := range hashalg.IDs() {
		p := samplePublication(t, 42, alg)
		s, err := p.Text()
		require.NoError(t, err)
		require.NotContains(t, s, "=")
		back, err := ParseText(s)
		require.NoError(t, err, alg.String())
		require.Equal(t, p, back)
	}
}

func TestTextChecksum(t *testing.T) {
	p := samplePublication(t, 1262304000, hashalg.SHA256)
	raw, err := p.Binary()
	require.NoError(t, err)
	raw[3] ^= 0x01
	_, err = ParseText(EncodeGrouped(raw, PublicationGroup))
	require.True(t, errors.Is(err, ErrChecksum))
}

func TestTextRejectsUnknownAlgorithm(t *testing.T) {
	p := samplePublication(t, 7, hashalg.SHA256)
	raw, err := p.Binary()
	require.NoError(t, err)
	raw[8] = 6
	_, err = ParseBinary(appendChecksum(raw[:len(raw)-4]))
	require.True(t, errors.Is(err, hashalg.ErrUnsupported))
}

func TestTimeRange(t *testing.T) {
	ts, err := PublishedData{Identifier: 1000}.Time()
	require.NoError(t, err)
	require.Equal(t, int64(1000), ts)

	_, err = PublishedData{Identifier: 1 << 63}.Time()
	require.True(t, errors.Is(err, ErrIdentifier))
}

func TestEncodeGrouped(t *testing.T) {
	require.Equal(t, "MZXW6", EncodeGrouped([]byte("foo"), 8))
	require.Equal(t, "MZXW6Y-TBOI", EncodeGrouped([]byte("fooba"), 6))
	require.Equal(t, "MZXW6YTBOI", EncodeGrouped([]byte("fooba"), 0))

	b, err := DecodeGrouped("mzxw6y-tboi")
	require.NoError(t, err)
	require.Equal(t, []byte("fooba"), b)

	_, err = DecodeGrouped("MZ!W")
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestReferences(t *testing.T) {
	refs := []string{"Financial Times, ISSN: 0307-1766, 2010-01-01", "https://twitter.com/Guardtime"}
	der, err := MarshalReferences(refs)
	require.NoError(t, err)

	got, err := ParseReferences(append(der, 0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, refs, got)

	_, err = ParseReferences([]byte{0x04, 0x00})
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestReferencesUTF8String(t *testing.T) {
	der := []byte{0x31, 0x05, 0x0c, 0x03, 'a', 'b', 'c'}
	got, err := ParseReferences(der)
	require.NoError(t, err)
	require.Equal(t, []string{"abc"}, got)

	// Plain octet strings without the marker are taken verbatim.
	der = []byte{0x31, 0x04, 0x04, 0x02, 'h', 'i'}
	got, err = ParseReferences(der)
	require.NoError(t, err)
	require.Equal(t, []string{"hi"}, got)
}
