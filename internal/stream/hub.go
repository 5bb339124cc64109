// Package stream serves the DJ's local monitor path: the gain-applied
// program signal fanned out to whatever the operator is listening with
// (browser via WebRTC, anything that plays an MP3 URL).
package stream

import (
	"context"
	"sync"
)

// tapBuffer is ~2 seconds of 20ms frames; a lagging monitor client skips
// audio instead of stalling the fan-out.
const tapBuffer = 100

// Hub fans monitor frames from the capture pipeline out to N taps.
type Hub struct {
	mu   sync.RWMutex
	taps map[*Tap]struct{}
}

// Tap receives monitor frames from the hub.
type Tap struct {
	C    chan []int16 // buffered channel of 20ms mono PCM frames
	done chan struct{}
}

// Done is closed when the tap is detached.
func (t *Tap) Done() <-chan struct{} {
	return t.done
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{taps: make(map[*Tap]struct{})}
}

// Attach registers a new tap.
func (h *Hub) Attach() *Tap {
	t := &Tap{
		C:    make(chan []int16, tapBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.taps[t] = struct{}{}
	h.mu.Unlock()
	return t
}

// Detach removes a tap and signals it to stop.
func (h *Hub) Detach(t *Tap) {
	h.mu.Lock()
	_, ok := h.taps[t]
	delete(h.taps, t)
	h.mu.Unlock()
	if ok {
		close(t.done)
	}
}

// TapCount returns the number of attached taps.
func (h *Hub) TapCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.taps)
}

// Run forwards frames from source to every tap until the context is
// cancelled or the source closes. Full taps drop the frame.
func (h *Hub) Run(ctx context.Context, source <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			h.mu.RLock()
			for t := range h.taps {
				select {
				case t.C <- frame:
				default:
					// tap too slow, keep the fan-out moving
				}
			}
			h.mu.RUnlock()
		}
	}
}
