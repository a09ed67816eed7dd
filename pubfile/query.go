package pubfile

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubdata"
)

// PublicationInterval is the nominal spacing of publication identifiers.
const PublicationInterval = 86400

// publication returns cell i from the table, or decodes it on demand when
// the file was opened lazily. i must already be in range.
func (f *File) publication(i int) (cell, error) {
	if !f.lazy {
		return f.pubs[i], nil
	}
	l := f.layout
	return decodeCell(f.data, cellOffset(l.pubBegin, l.pubCellSize, i), l.pubCellSize)
}

// findPublication estimates the index of t from the first identifier and
// the nominal interval, then scans linearly in the one direction that can
// still contain t. The estimate is only a hint; files with irregular
// spacing are still searched exhaustively in that direction.
func (f *File) findPublication(t int64) (cell, error) {
	n := f.layout.pubCount
	first := f.header.FirstPublicationIdent
	if n == 0 || t < first {
		return cell{}, newError(KindTrustPointNotFound, "PUBFILE-QRY-001",
			fmt.Sprintf("no publication for time %d", t))
	}

	est := (uint64(t) - uint64(first)) / PublicationInterval
	i := n - 1
	if est < uint64(n-1) {
		i = int(est)
	}

	c, err := f.publication(i)
	if err != nil {
		return cell{}, err
	}
	if c.ident == t {
		return c, nil
	}

	step := 1
	if c.ident > t {
		step = -1
	}
	prev := c.ident
	warned := false
	for j := i + step; j >= 0 && j < n; j += step {
		c, err = f.publication(j)
		if err != nil {
			return cell{}, err
		}
		if c.ident == t {
			return c, nil
		}
		if !warned && ((step > 0 && c.ident < prev) || (step < 0 && c.ident > prev)) {
			f.log.Debug("publication identifiers out of order",
				zap.Int("index", j),
				zap.Int64("identifier", c.ident),
				zap.Int64("previous", prev),
			)
			warned = true
		}
		prev = c.ident
	}
	return cell{}, newError(KindTrustPointNotFound, "PUBFILE-QRY-002",
		fmt.Sprintf("no publication for time %d", t))
}

// findPublicationAtOrBefore returns the last publication whose identifier
// does not exceed t, starting from the same estimate as findPublication and
// assuming an ascending table.
func (f *File) findPublicationAtOrBefore(t int64) (cell, error) {
	n := f.layout.pubCount
	first := f.header.FirstPublicationIdent
	if n == 0 || t < first {
		return cell{}, newError(KindTrustPointNotFound, "PUBFILE-QRY-006",
			fmt.Sprintf("no publication at or before time %d", t))
	}

	est := (uint64(t) - uint64(first)) / PublicationInterval
	i := n - 1
	if est < uint64(n-1) {
		i = int(est)
	}
	c, err := f.publication(i)
	if err != nil {
		return cell{}, err
	}
	for c.ident > t {
		if i == 0 {
			return cell{}, newError(KindTrustPointNotFound, "PUBFILE-QRY-007",
				fmt.Sprintf("no publication at or before time %d", t))
		}
		i--
		if c, err = f.publication(i); err != nil {
			return cell{}, err
		}
	}
	for i+1 < n {
		next, err := f.publication(i + 1)
		if err != nil {
			return cell{}, err
		}
		if next.ident > t {
			break
		}
		c, i = next, i+1
	}
	return c, nil
}

func (f *File) publishedData(c cell) (pubdata.PublishedData, error) {
	if c.ident < 0 {
		return pubdata.PublishedData{}, newError(KindInvalidFormat, "PUBFILE-QRY-005",
			fmt.Sprintf("negative publication identifier %d", c.ident))
	}
	return pubdata.PublishedData{
		Identifier: uint64(c.ident),
		Imprint:    hashalg.Imprint(f.imprint(c.imprint)),
	}, nil
}

func publicationText(p pubdata.PublishedData) (string, error) {
	s, err := p.Text()
	if err != nil {
		return "", wrapError(imprintKind(err), "PUBFILE-TXT-005", "cannot encode publication", err)
	}
	return s, nil
}

// PublishedData returns the published data whose identifier equals t.
// A miss is reported as KindTrustPointNotFound.
func (f *File) PublishedData(t int64) (pubdata.PublishedData, error) {
	c, err := f.findPublication(t)
	if err != nil {
		return pubdata.PublishedData{}, err
	}
	return f.publishedData(c)
}

// PublicationByTime returns the publication string for time t.
func (f *File) PublicationByTime(t int64) (string, error) {
	p, err := f.PublishedData(t)
	if err != nil {
		return "", err
	}
	return publicationText(p)
}

// PublishedDataAtOrBefore returns the latest publication not after t, the
// one a signature made at time t must be extended to. Only times before
// the first publication are reported as KindTrustPointNotFound.
func (f *File) PublishedDataAtOrBefore(t int64) (pubdata.PublishedData, error) {
	c, err := f.findPublicationAtOrBefore(t)
	if err != nil {
		return pubdata.PublishedData{}, err
	}
	return f.publishedData(c)
}

func (f *File) PublicationAtOrBefore(t int64) (string, error) {
	p, err := f.PublishedDataAtOrBefore(t)
	if err != nil {
		return "", err
	}
	return publicationText(p)
}

// PublishedDataByIndex returns the published data of the i-th publication.
func (f *File) PublishedDataByIndex(i int) (pubdata.PublishedData, error) {
	if i < 0 || i >= f.layout.pubCount {
		return pubdata.PublishedData{}, newError(KindInvalidArgument, "PUBFILE-QRY-003",
			fmt.Sprintf("publication index %d out of range [0,%d)", i, f.layout.pubCount))
	}
	c, err := f.publication(i)
	if err != nil {
		return pubdata.PublishedData{}, err
	}
	return f.publishedData(c)
}

// PublicationByIndex returns the publication string of the i-th publication.
func (f *File) PublicationByIndex(i int) (string, error) {
	p, err := f.PublishedDataByIndex(i)
	if err != nil {
		return "", err
	}
	return publicationText(p)
}

func (f *File) keyHash(i int) (cell, error) {
	if i < 0 || i >= f.layout.khCount {
		return cell{}, newError(KindInvalidArgument, "PUBFILE-QRY-004",
			fmt.Sprintf("key hash index %d out of range [0,%d)", i, f.layout.khCount))
	}
	return f.keyHashes[i], nil
}

// KeyHash returns the imprint of the i-th public key hash.
func (f *File) KeyHash(i int) ([]byte, error) {
	c, err := f.keyHash(i)
	if err != nil {
		return nil, err
	}
	return f.imprint(c.imprint), nil
}

// KeyHashTime returns the time the i-th key was published, in Unix seconds.
func (f *File) KeyHashTime(i int) (int64, error) {
	c, err := f.keyHash(i)
	if err != nil {
		return 0, err
	}
	return c.ident, nil
}

// KeyHashText renders the i-th key hash in publication string form, with
// the key publication time as identifier.
func (f *File) KeyHashText(i int) (string, error) {
	c, err := f.keyHash(i)
	if err != nil {
		return "", err
	}
	p, err := f.publishedData(c)
	if err != nil {
		return "", err
	}
	return publicationText(p)
}

// ExtractTimeFromPublicationText decodes a publication string and returns
// its identifier as Unix seconds.
func ExtractTimeFromPublicationText(s string) (int64, error) {
	if s == "" {
		return 0, newError(KindInvalidArgument, "PUBFILE-TXT-000", "empty publication string")
	}
	p, err := pubdata.ParseText(s)
	switch {
	case err == nil:
	case errors.Is(err, pubdata.ErrChecksum):
		return 0, wrapError(KindInvalidFormat, "PUBFILE-TXT-002", "publication checksum mismatch", err)
	case errors.Is(err, hashalg.ErrUnsupported):
		return 0, wrapError(KindUntrustedHashAlgorithm, "PUBFILE-TXT-003", "publication uses an untrusted hash algorithm", err)
	default:
		return 0, wrapError(KindInvalidFormat, "PUBFILE-TXT-001", "malformed publication string", err)
	}
	t, err := p.Time()
	if err != nil {
		return 0, wrapError(KindInvalidFormat, "PUBFILE-TXT-004", "publication identifier out of range", err)
	}
	return t, nil
}
