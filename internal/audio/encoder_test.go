package audio

import (
	"encoding/binary"
	"testing"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		input float32
		want  int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{0.5, 16384}, // round(0.5 * 32767) = round(16383.5)
		{-0.5, -16384},
		{0.25, 8192},
		{-0.25, -8192},
	}
	for _, tt := range tests {
		if got := Quantize(tt.input); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestQuantizeClampsOutOfRange(t *testing.T) {
	tests := []struct {
		input float32
		want  int16
	}{
		{1.0001, 32767},
		{2, 32767},
		{100, 32767},
		{-1.0001, -32768},
		{-3, -32768},
		{-100, -32768},
	}
	for _, tt := range tests {
		if got := Quantize(tt.input); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want clamped %d", tt.input, got, tt.want)
		}
	}
}

func TestQuantizeNeverOverflows(t *testing.T) {
	// Sweep the full input range and a margin beyond it; every output must
	// stay inside int16 without wraparound.
	for i := -300; i <= 300; i++ {
		s := float32(i) / 200.0 // -1.5 .. 1.5
		v := int32(Quantize(s))
		if v > 32767 || v < -32768 {
			t.Fatalf("Quantize(%v) = %d out of int16 range", s, v)
		}
		if s >= 0 && v < 0 {
			t.Fatalf("Quantize(%v) = %d flipped sign", s, v)
		}
		if s <= 0 && v > 0 {
			t.Fatalf("Quantize(%v) = %d flipped sign", s, v)
		}
	}
}

func TestEncodeFrame(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5}
	buf := EncodeFrame(samples)
	if len(buf) != len(samples)*2 {
		t.Fatalf("EncodeFrame length = %d, want %d", len(buf), len(samples)*2)
	}

	want := []int16{0, 32767, -32768, 16384}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		if got != w {
			t.Errorf("EncodeFrame sample[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestEncodeFrameFullScalePeaks(t *testing.T) {
	// A +1.0 peak must encode to 32767 (not 32768, which would wrap) and a
	// -1.0 trough to -32768.
	block := make([]float32, BlockSize)
	block[0] = 1.0
	block[1] = -1.0

	buf := EncodeFrame(block)
	if got := int16(binary.LittleEndian.Uint16(buf[0:])); got != 32767 {
		t.Errorf("peak encoded as %d, want 32767", got)
	}
	if got := int16(binary.LittleEndian.Uint16(buf[2:])); got != -32768 {
		t.Errorf("trough encoded as %d, want -32768", got)
	}
	if len(buf) != BlockSize*2 {
		t.Errorf("buffer length = %d, want %d", len(buf), BlockSize*2)
	}
}

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	if len(buf) != len(samples)*2 {
		t.Fatalf("SamplesToBytes length = %d, want %d", len(buf), len(samples)*2)
	}

	// 256 = 0x0100 -> little-endian bytes [0x00, 0x01]
	idx := 5 * 2
	if buf[idx] != 0x00 || buf[idx+1] != 0x01 {
		t.Errorf("Sample 256 encoded as [%02x, %02x], want [00, 01]", buf[idx], buf[idx+1])
	}
}
