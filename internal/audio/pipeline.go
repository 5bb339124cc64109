package audio

import (
	"context"
	"errors"
	"sync"
)

// Pipeline is the linear processing graph for one capture session:
// source -> meter tap -> gain -> {wire encoder tap, monitor tap}.
// The meter sits before the gain stage, so the displayed level reflects the
// raw input regardless of the local volume setting.
type Pipeline struct {
	source Source
	meter  *Meter

	mu       sync.Mutex
	gain     float64
	wireSend func([]byte)
	wireOn   func() bool

	resampler *Resampler
	chunker   *FrameChunker
	monitorCh chan []int16

	closeOnce sync.Once
}

// NewPipeline builds the graph around an already-acquired source with unity
// gain and the default meter settings.
func NewPipeline(source Source) (*Pipeline, error) {
	if source == nil {
		return nil, errors.New("pipeline: nil source")
	}
	return &Pipeline{
		source:    source,
		meter:     NewMeter(MeterWindow, MeterSmoothing),
		gain:      1.0,
		resampler: NewResampler(SampleRate, MonitorSampleRate),
		chunker:   NewFrameChunker(MonitorFrameSize),
		monitorCh: make(chan []int16, 16),
	}, nil
}

// SetWireTap installs the consumer for encoded wire frames. Frames are only
// encoded and handed over while active() reports true; blocks are still
// consumed otherwise so the source never backs up.
func (p *Pipeline) SetWireTap(send func([]byte), active func() bool) {
	p.mu.Lock()
	p.wireSend = send
	p.wireOn = active
	p.mu.Unlock()
}

// SetVolume sets the gain multiplier. Any numeric value is accepted; callers
// are expected to pass something near [0, 1].
func (p *Pipeline) SetVolume(v float64) {
	p.mu.Lock()
	p.gain = v
	p.mu.Unlock()
}

// Volume returns the current gain multiplier.
func (p *Pipeline) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gain
}

// Level returns the meter's current smoothed input level in [0, 1].
func (p *Pipeline) Level() float64 {
	return p.meter.Level()
}

// MonitorFrames returns the channel of gain-applied 20ms monitor frames at
// the monitor sample rate. Closed when Run exits.
func (p *Pipeline) MonitorFrames() <-chan []int16 {
	return p.monitorCh
}

// Run drains the source until the context is cancelled or the source closes
// its block stream.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.monitorCh)
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-p.source.Blocks():
			if !ok {
				return
			}
			p.process(block)
		}
	}
}

func (p *Pipeline) process(block []float32) {
	p.meter.Observe(block)

	g := p.Volume()
	if g != 1 {
		for i := range block {
			block[i] *= float32(g)
		}
	}

	p.mu.Lock()
	send, active := p.wireSend, p.wireOn
	p.mu.Unlock()
	if send != nil && (active == nil || active()) {
		send(EncodeFrame(block))
	}

	for _, f := range p.chunker.Push(p.resampler.Process(block)) {
		select {
		case p.monitorCh <- f:
		default:
			// monitor consumer lagging; local playback may skip a frame,
			// the wire path never waits on it
		}
	}
}

// Close tears the graph down: wire tap first, then the source. Each step is
// guarded independently and the whole call is safe to repeat.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.wireSend = nil
		p.wireOn = nil
		p.mu.Unlock()

		if p.source != nil {
			err = p.source.Close()
		}
	})
	return err
}
