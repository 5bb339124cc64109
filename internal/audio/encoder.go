package audio

import (
	"encoding/binary"
	"math"
)

// Quantize converts one float sample to signed 16-bit PCM. Input is clamped
// to [-1, 1] first. Scaling is asymmetric (32768 below zero, 32767 at or
// above) so the full int16 range is used without overflow.
func Quantize(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(math.Round(float64(s) * 32768))
	}
	return int16(math.Round(float64(s) * 32767))
}

// EncodeFrame quantizes a block of samples into a contiguous little-endian
// int16 buffer, one sample per input sample, ready to send as a binary frame.
func EncodeFrame(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(Quantize(s)))
	}
	return buf
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
