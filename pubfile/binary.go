package pubfile

import "encoding/binary"

// Callers guarantee off+width <= len(buf).

func readUint16(buf []byte, off int) uint16 {
	return binary.BigEndian.Uint16(buf[off : off+2])
}

func readInt32(buf []byte, off int) int32 {
	return int32(binary.BigEndian.Uint32(buf[off : off+4]))
}

func readInt64(buf []byte, off int) int64 {
	return int64(binary.BigEndian.Uint64(buf[off : off+8]))
}
