package audio

// Resampler converts a continuous mono sample stream between rates using
// linear interpolation. It carries fractional position and the previous
// block's final sample across calls, so block boundaries are seamless. The
// output lags the input by one sample.
type Resampler struct {
	ratio float64 // input samples consumed per output sample
	pos   float64 // fractional read position, 0 == previous block's last sample
	last  float32
}

// NewResampler creates a resampler from one rate to another.
func NewResampler(from, to int) *Resampler {
	return &Resampler{ratio: float64(from) / float64(to)}
}

// Process converts one input block and returns the resampled output.
func (r *Resampler) Process(in []float32) []float32 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float32, 0, int(float64(len(in))/r.ratio)+2)
	pos := r.pos

	// Index 0 of the extended stream is the carried-over sample; index i>0
	// maps to in[i-1]. Interpolation needs the sample after the index, so
	// the last usable index is len(in)-1.
	at := func(i int) float32 {
		if i == 0 {
			return r.last
		}
		return in[i-1]
	}

	for int(pos)+1 <= len(in) {
		i := int(pos)
		frac := float32(pos - float64(i))
		s0 := at(i)
		s1 := at(i + 1)
		out = append(out, s0+(s1-s0)*frac)
		pos += r.ratio
	}

	r.pos = pos - float64(len(in))
	r.last = in[len(in)-1]
	return out
}

// FrameChunker accumulates resampled samples and cuts them into quantized
// fixed-size int16 frames for the monitor encoders.
type FrameChunker struct {
	size int
	buf  []int16
}

// NewFrameChunker creates a chunker emitting frames of the given size.
func NewFrameChunker(size int) *FrameChunker {
	return &FrameChunker{size: size}
}

// Push appends samples and returns every complete frame now available.
// Leftover samples are retained for the next call.
func (c *FrameChunker) Push(in []float32) [][]int16 {
	for _, s := range in {
		c.buf = append(c.buf, Quantize(s))
	}

	var frames [][]int16
	for len(c.buf) >= c.size {
		f := make([]int16, c.size)
		copy(f, c.buf[:c.size])
		c.buf = c.buf[c.size:]
		frames = append(frames, f)
	}
	return frames
}

// Pending returns the number of buffered samples not yet emitted.
func (c *FrameChunker) Pending() int {
	return len(c.buf)
}
