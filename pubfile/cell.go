package pubfile

import (
	"fmt"

	"github.com/zcyzhu/node-guardtime/hashalg"
)

// minCellSize is the identifier plus the algorithm byte of the imprint.
const minCellSize = 8 + 1

// span locates an imprint inside File.data.
type span struct {
	off, len int
}

// cell is one decoded publication or key-hash entry. For publications ident
// is the publication identifier, for key hashes it is the key publication
// time. Both are Unix seconds.
type cell struct {
	ident   int64
	imprint span
}

// decodeCell reads the cell of size bytes at off. It is shared by the
// eager table builders and the lazy per-query path.
func decodeCell(data []byte, off, size int) (cell, error) {
	if size < minCellSize {
		return cell{}, newError(KindInvalidFormat, "PUBFILE-CELL-001",
			fmt.Sprintf("cell size %d below minimum %d", size, minCellSize))
	}
	if off < 0 || off > len(data)-size {
		return cell{}, newError(KindInvalidFormat, "PUBFILE-CELL-002", "cell outside file")
	}
	alg := hashalg.ID(data[off+8])
	if !alg.Trusted() {
		return cell{}, newError(KindUntrustedHashAlgorithm, "PUBFILE-CELL-003",
			fmt.Sprintf("untrusted hash algorithm %d in cell at offset %d", uint8(alg), off))
	}
	digest := alg.Size()
	if digest <= 0 {
		return cell{}, newError(KindCryptoFailure, "PUBFILE-CELL-004",
			fmt.Sprintf("no digest size for %s", alg))
	}
	imprintLen := 1 + digest
	if 8+imprintLen > size {
		return cell{}, newError(KindInvalidFormat, "PUBFILE-CELL-005",
			fmt.Sprintf("%s imprint does not fit cell size %d", alg, size))
	}
	return cell{
		ident:   readInt64(data, off),
		imprint: span{off: off + 8, len: imprintLen},
	}, nil
}
