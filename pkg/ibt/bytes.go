package ibt

import (
	"encoding/binary"
	"math"
)

// Uint32At decodes a little-endian uint32 at buf[start:start+4].
// The caller guarantees the bytes are present; a short buffer panics.
func Uint32At(buf []byte, start int) uint32 {
	return binary.LittleEndian.Uint32(buf[start : start+4])
}

// Float32At decodes a little-endian IEEE-754 single at buf[start:start+4].
func Float32At(buf []byte, start int) float32 {
	return math.Float32frombits(Uint32At(buf, start))
}

// Float64At decodes a little-endian IEEE-754 double at buf[start:start+8].
func Float64At(buf []byte, start int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[start : start+8]))
}
