package pubfile

// cellOffset is the single place cell positions are computed. Header
// validation guarantees the result stays inside the region for i < count.
func cellOffset(begin, cellSize, i int) int {
	return begin + i*cellSize
}

func decodeTable(data []byte, begin, cellSize, count int) ([]cell, error) {
	cells := make([]cell, count)
	for i := range cells {
		c, err := decodeCell(data, cellOffset(begin, cellSize, i), cellSize)
		if err != nil {
			return nil, err
		}
		cells[i] = c
	}
	return cells, nil
}

// checkAscending rejects publication tables whose identifiers are not
// strictly increasing. Duplicates are rejected too.
func checkAscending(cells []cell) error {
	for i := 1; i < len(cells); i++ {
		if cells[i].ident <= cells[i-1].ident {
			return newError(KindInvalidFormat, "PUBFILE-CELL-010", "publication identifiers are not strictly ascending")
		}
	}
	return nil
}
