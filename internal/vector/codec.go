// Package vector holds the embedding blob codec and similarity math.
//
// Embeddings are stored as a bare concatenation of little-endian IEEE-754
// float32 values: no header, no length prefix, no padding.
package vector

import (
	"encoding/binary"
	"math"
)

// Decode converts an embedding blob into its float32 components. The blob
// length must be a multiple of 4; a trailing partial group is ignored.
func Decode(blob []byte) []float32 {
	n := len(blob) / 4
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}

// Encode is the inverse of Decode.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
