// Package engine exposes the streaming engine's caller-facing surface. The
// hosting layer supplies an audio source and reads two getters; everything
// else (encoding, transport, reconnection, teardown) happens behind it.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/onairhq/onair/internal/audio"
	"github.com/onairhq/onair/internal/dj"
	"github.com/onairhq/onair/internal/health"
)

// Engine binds the capture pipeline, transport session, and health monitor.
// Public methods never panic and never return errors: failures become
// observer log/notice calls plus boolean results, so calling UI code needs
// no exception handling of its own. One Engine owns at most one live
// capture graph and one session at a time.
type Engine struct {
	obs dj.Observer

	session *dj.Session
	monitor *health.Monitor

	mu       sync.Mutex
	pipeline *audio.Pipeline
	cancel   context.CancelFunc
}

// New creates an engine for the given backend settings. Extra session
// options (settle delay, backoff, reconnect bound) pass through to the
// transport session.
func New(settings dj.Settings, dialer dj.Dialer, obs dj.Observer, sessOpts ...dj.Option) *Engine {
	if obs == nil {
		obs = dj.LogObserver{}
	}
	e := &Engine{obs: obs}

	opts := append([]dj.Option{
		dj.WithObserver(obs),
		dj.WithTerminalHook(e.teardown),
	}, sessOpts...)
	e.session = dj.NewSession(settings, dialer, opts...)
	e.monitor = health.NewMonitor(e, e.session, obs)
	return e
}

// Initialize builds the processing graph around an already-acquired audio
// source and starts draining it. Reports false, never an error, so the
// caller can simply disable its go-live control.
func (e *Engine) Initialize(src audio.Source) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pipeline != nil {
		e.obs.Log("warn", "initialize ignored: capture graph already active")
		return false
	}

	p, err := audio.NewPipeline(src)
	if err != nil {
		e.obs.Log("error", fmt.Sprintf("initialize: %v", err))
		e.obs.Notice(dj.NoticeError, "could not access the audio input")
		return false
	}
	p.SetWireTap(e.session.SendAudio, e.session.Streaming)

	ctx, cancel := context.WithCancel(context.Background())
	e.pipeline = p
	e.cancel = cancel
	go p.Run(ctx)

	e.obs.Log("info", "capture graph ready")
	return true
}

// StartStreaming connects to the broadcast backend for the given show.
func (e *Engine) StartStreaming(showID string) bool {
	e.mu.Lock()
	ready := e.pipeline != nil
	e.mu.Unlock()

	if !ready {
		e.obs.Log("error", "startStreaming: engine not initialized")
		e.obs.Notice(dj.NoticeError, "audio input is not ready")
		return false
	}
	return e.session.Start(showID)
}

// StopStreaming ends the session and tears the capture graph down. Safe to
// call at any time, repeatedly.
func (e *Engine) StopStreaming() {
	e.session.Stop()
	e.teardown()
}

// teardown releases the capture graph. Doubles as the session's terminal
// hook, so auth rejection and reconnect exhaustion release resources the
// same way a deliberate stop does.
func (e *Engine) teardown() {
	e.mu.Lock()
	p := e.pipeline
	cancel := e.cancel
	e.pipeline = nil
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if p != nil {
		if err := p.Close(); err != nil {
			e.obs.Log("error", fmt.Sprintf("teardown: %v", err))
		}
	}
}

// SetVolume adjusts the local gain stage.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	p := e.pipeline
	e.mu.Unlock()
	if p != nil {
		p.SetVolume(v)
	}
}

// Level reports the pipeline's live meter reading; zero when no graph is
// active. This feeds the health monitor.
func (e *Engine) Level() float64 {
	e.mu.Lock()
	p := e.pipeline
	e.mu.Unlock()
	if p == nil {
		return 0
	}
	return p.Level()
}

// AudioLevel returns the monitor's last sampled level in [0, 1].
func (e *Engine) AudioLevel() float64 {
	return e.monitor.AudioLevel()
}

// ConnectionQuality returns the monitor's last sampled classification.
func (e *Engine) ConnectionQuality() dj.Quality {
	return e.monitor.ConnectionQuality()
}

// Monitor exposes the health monitor so the host can drive its tick loop.
func (e *Engine) Monitor() *health.Monitor {
	return e.monitor
}

// Session exposes the transport session for status reporting.
func (e *Engine) Session() *dj.Session {
	return e.session
}

// MonitorFrames returns the current pipeline's local-monitor frame channel,
// or nil when no capture graph is active.
func (e *Engine) MonitorFrames() <-chan []int16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pipeline == nil {
		return nil
	}
	return e.pipeline.MonitorFrames()
}
