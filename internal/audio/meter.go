package audio

import (
	"math"
	"sync"
)

// Meter tracks a smoothed signal level in [0, 1] for UI display. It computes
// the RMS of fixed-size windows and blends each new window into the running
// level with an exponential smoothing factor.
type Meter struct {
	mu        sync.Mutex
	window    int
	smoothing float64
	level     float64
}

// NewMeter creates a meter with the given window size (samples) and
// smoothing factor in [0, 1); higher smoothing means slower response.
func NewMeter(window int, smoothing float64) *Meter {
	return &Meter{window: window, smoothing: smoothing}
}

// Observe folds a block of samples into the level. Partial trailing windows
// are included so short blocks still register.
func (m *Meter) Observe(block []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for start := 0; start < len(block); start += m.window {
		end := start + m.window
		if end > len(block) {
			end = len(block)
		}
		var sum float64
		for _, s := range block[start:end] {
			sum += float64(s) * float64(s)
		}
		rms := math.Sqrt(sum / float64(end-start))
		m.level = m.smoothing*m.level + (1-m.smoothing)*rms
	}

	if m.level > 1 {
		m.level = 1
	}
}

// Level returns the current smoothed level in [0, 1].
func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}
