package pubfile

import "fmt"

// CurrentVersion is the only header version Decode accepts.
const CurrentVersion = 1

// HeaderSize is the length of the fixed header in bytes.
const HeaderSize = 36

const (
	offVersion             = 0
	offFirstPublication    = 2
	offDataBlockBegin      = 10
	offPublicationCellSize = 14
	offPublicationCount    = 16
	offKeyHashesBegin      = 20
	offKeyHashCellSize     = 24
	offKeyHashCount        = 26
	offReferencesBegin     = 28
	offSignatureBegin      = 32
)

// Header is the fixed-size preamble of a publications file. All offsets are
// absolute positions in the file.
type Header struct {
	Version               uint16
	FirstPublicationIdent int64
	DataBlockBegin        int32
	PublicationCellSize   uint16
	PublicationCount      int32
	KeyHashesBegin        int32
	KeyHashCellSize       uint16
	KeyHashCount          uint16
	ReferencesBegin       int32
	SignatureBegin        int32
}

// layout is the validated view of a Header in native ints.
type layout struct {
	pubBegin, pubCellSize, pubCount int
	khBegin, khCellSize, khCount    int
	refBegin, sigBegin              int
}

func decodeHeader(data []byte) (Header, layout, error) {
	var h Header
	if len(data) < offFirstPublication {
		return h, layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-001", "publications file too short for version field")
	}
	h.Version = readUint16(data, offVersion)
	if h.Version != CurrentVersion {
		return h, layout{}, newError(KindUnsupportedFormat, "PUBFILE-HDR-002",
			fmt.Sprintf("unsupported publications file version %d", h.Version))
	}
	if len(data) < HeaderSize {
		return h, layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-003", "publications file too short for header")
	}

	h.FirstPublicationIdent = readInt64(data, offFirstPublication)
	h.DataBlockBegin = readInt32(data, offDataBlockBegin)
	h.PublicationCellSize = readUint16(data, offPublicationCellSize)
	h.PublicationCount = readInt32(data, offPublicationCount)
	h.KeyHashesBegin = readInt32(data, offKeyHashesBegin)
	h.KeyHashCellSize = readUint16(data, offKeyHashCellSize)
	h.KeyHashCount = readUint16(data, offKeyHashCount)
	h.ReferencesBegin = readInt32(data, offReferencesBegin)
	h.SignatureBegin = readInt32(data, offSignatureBegin)

	l, err := h.layout(len(data))
	if err != nil {
		return h, layout{}, err
	}
	return h, l, nil
}

// layout checks the region chain and cell containment against a file of
// size n bytes.
func (h Header) layout(n int) (layout, error) {
	l := layout{
		pubBegin:    int(h.DataBlockBegin),
		pubCellSize: int(h.PublicationCellSize),
		pubCount:    int(h.PublicationCount),
		khBegin:     int(h.KeyHashesBegin),
		khCellSize:  int(h.KeyHashCellSize),
		khCount:     int(h.KeyHashCount),
		refBegin:    int(h.ReferencesBegin),
		sigBegin:    int(h.SignatureBegin),
	}

	if l.pubBegin < HeaderSize || l.pubBegin > n {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-004", "publication block offset out of range")
	}
	if l.khBegin < l.pubBegin || l.khBegin > n {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-005", "key hash block offset out of range")
	}
	if l.refBegin < l.khBegin || l.refBegin > n {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-006", "references offset out of range")
	}
	if l.sigBegin < l.refBegin || l.sigBegin > n {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-007", "signature offset out of range")
	}

	// Containment is checked by division so a large count cannot overflow
	// count*cellSize.
	if l.pubCellSize == 0 {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-008", "publication cell size is zero")
	}
	if l.pubCount < 0 {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-009", "negative publication count")
	}
	if (l.khBegin-l.pubBegin)/l.pubCellSize < l.pubCount {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-010", "publication cells overrun their block")
	}
	if l.khCellSize == 0 {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-011", "key hash cell size is zero")
	}
	// Key hash cells must end before the references block, which is
	// tighter than bounding them by the signature offset.
	if (l.refBegin-l.khBegin)/l.khCellSize < l.khCount {
		return layout{}, newError(KindInvalidFormat, "PUBFILE-HDR-012", "key hash cells overrun their block")
	}
	return l, nil
}
