package health

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onairhq/onair/internal/dj"
)

type stubLevels struct {
	mu    sync.Mutex
	level float64
}

func (s *stubLevels) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *stubLevels) set(v float64) {
	s.mu.Lock()
	s.level = v
	s.mu.Unlock()
}

type stubQuality struct {
	mu sync.Mutex
	q  dj.Quality
}

func (s *stubQuality) ConnectionQuality() dj.Quality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q
}

func (s *stubQuality) set(q dj.Quality) {
	s.mu.Lock()
	s.q = q
	s.mu.Unlock()
}

type countingObserver struct {
	mu   sync.Mutex
	logs []string
}

func (o *countingObserver) Log(level, msg string) {
	o.mu.Lock()
	o.logs = append(o.logs, level+": "+msg)
	o.mu.Unlock()
}

func (o *countingObserver) Notice(kind, msg string) {}

func (o *countingObserver) levelLogs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, l := range o.logs {
		if strings.Contains(l, "audio level") {
			n++
		}
	}
	return n
}

func TestMonitorInitialState(t *testing.T) {
	m := NewMonitor(&stubLevels{}, &stubQuality{q: dj.QualityOffline}, &countingObserver{})
	if m.AudioLevel() != 0 {
		t.Errorf("initial AudioLevel = %v, want 0", m.AudioLevel())
	}
	if m.ConnectionQuality() != dj.QualityOffline {
		t.Errorf("initial quality = %v, want offline", m.ConnectionQuality())
	}
}

func TestMonitorTickSamples(t *testing.T) {
	levels := &stubLevels{}
	quality := &stubQuality{q: dj.QualityOffline}
	m := NewMonitor(levels, quality, &countingObserver{})

	levels.set(0.42)
	quality.set(dj.QualityExcellent)
	m.Tick()

	if got := m.AudioLevel(); got != 0.42 {
		t.Errorf("AudioLevel = %v, want 0.42", got)
	}
	if got := m.ConnectionQuality(); got != dj.QualityExcellent {
		t.Errorf("ConnectionQuality = %v, want excellent", got)
	}

	// Values are cached, not recomputed on read.
	levels.set(0.9)
	if got := m.AudioLevel(); got != 0.42 {
		t.Errorf("AudioLevel = %v before next Tick, want cached 0.42", got)
	}
}

func TestMonitorLogThrottle(t *testing.T) {
	obs := &countingObserver{}
	m := NewMonitor(&stubLevels{level: 0.5}, &stubQuality{q: dj.QualityGood}, obs)

	for i := 0; i < logEvery*3; i++ {
		m.Tick()
	}
	if got := obs.levelLogs(); got != 3 {
		t.Errorf("level logs = %d after %d ticks, want 3", got, logEvery*3)
	}

	// One tick short of the next boundary stays quiet.
	for i := 0; i < logEvery-1; i++ {
		m.Tick()
	}
	if got := obs.levelLogs(); got != 3 {
		t.Errorf("level logs = %d, want still 3", got)
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	m := NewMonitor(&stubLevels{level: 0.1}, &stubQuality{q: dj.QualityGood}, &countingObserver{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for m.AudioLevel() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.AudioLevel() != 0.1 {
		t.Fatal("Run never ticked")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
