// Package health derives the UI-facing link and signal indicators: a live
// audio level and the last connection-quality classification. It computes
// neither on its own schedule; the host drives sampling through Tick (or the
// Run convenience loop), so the package works under any render/timer regime.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onairhq/onair/internal/dj"
)

// LevelSource exposes a current signal level in [0, 1].
type LevelSource interface {
	Level() float64
}

// QualitySource exposes the transport's last quality classification.
type QualitySource interface {
	ConnectionQuality() dj.Quality
}

// logEvery throttles the diagnostic level log; at a 60Hz tick that is one
// line every two seconds.
const logEvery = 120

// Monitor samples level and quality on demand and caches the last values for
// cheap reads from status handlers.
type Monitor struct {
	levels  LevelSource
	quality QualitySource
	obs     dj.Observer

	mu      sync.Mutex
	ticks   int
	level   float64
	lastQ   dj.Quality
}

// NewMonitor creates a monitor over the given sources.
func NewMonitor(levels LevelSource, quality QualitySource, obs dj.Observer) *Monitor {
	if obs == nil {
		obs = dj.LogObserver{}
	}
	return &Monitor{
		levels:  levels,
		quality: quality,
		obs:     obs,
		lastQ:   dj.QualityOffline,
	}
}

// Tick samples both sources once. Call it from the host's own loop.
func (m *Monitor) Tick() {
	level := m.levels.Level()
	q := m.quality.ConnectionQuality()

	m.mu.Lock()
	m.level = level
	m.lastQ = q
	m.ticks++
	emit := m.ticks%logEvery == 0
	m.mu.Unlock()

	if emit {
		m.obs.Log("debug", fmt.Sprintf("audio level: %.0f%%", level*100))
	}
}

// Run drives Tick on a ticker until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// AudioLevel returns the last sampled level in [0, 1].
func (m *Monitor) AudioLevel() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// ConnectionQuality returns the last sampled classification.
func (m *Monitor) ConnectionQuality() dj.Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQ
}
