package audio

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Init initializes the host audio system. Must be called once before
// NewCapture; pair with Terminate on shutdown.
func Init() error {
	return portaudio.Initialize()
}

// Terminate releases the host audio system.
func Terminate() {
	portaudio.Terminate()
}

// Capture reads mono float32 blocks from the default input device.
type Capture struct {
	stream *portaudio.Stream
	buf    []float32
	blocks chan []float32
	done   chan struct{}
	once   sync.Once
}

// NewCapture opens the default input device at the engine sample rate and
// starts pumping blocks. Blocks are dropped when the consumer lags rather
// than stalling the device callback.
func NewCapture() (*Capture, error) {
	c := &Capture{
		buf:    make([]float32, BlockSize),
		blocks: make(chan []float32, 8),
		done:   make(chan struct{}),
	}

	stream, err := portaudio.OpenDefaultStream(Channels, 0, float64(SampleRate), BlockSize, c.buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	go c.pump()
	return c, nil
}

// Blocks returns the channel of captured sample blocks.
func (c *Capture) Blocks() <-chan []float32 {
	return c.blocks
}

func (c *Capture) pump() {
	defer close(c.blocks)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			select {
			case <-c.done: // expected during Close
			default:
				log.Printf("capture: read error: %v", err)
			}
			return
		}

		block := make([]float32, BlockSize)
		copy(block, c.buf)

		select {
		case c.blocks <- block:
		case <-c.done:
			return
		default:
			// consumer too slow, drop the block to keep the device serviced
		}
	}
}

// Close stops the device and ends the block stream. Safe to call twice.
func (c *Capture) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if e := c.stream.Stop(); e != nil {
			err = e
		}
		if e := c.stream.Close(); e != nil && err == nil {
			err = e
		}
	})
	return err
}
