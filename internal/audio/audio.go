package audio

import "time"

const (
	SampleRate = 44100
	Channels   = 1
	BitDepth   = 16
	BlockSize  = 4096 // samples per capture block pulled from the source

	MeterWindow    = 256 // samples per level-meter window
	MeterSmoothing = 0.8 // exponential smoothing factor for the meter

	// Self-monitor output format. Opus only accepts 48kHz-family rates, so
	// the monitor path is resampled from the capture rate.
	MonitorSampleRate    = 48000
	MonitorFrameDuration = 20 * time.Millisecond
	MonitorFrameSize     = 960 // samples per 20ms mono frame at 48kHz
)

// Source delivers fixed-size blocks of mono float32 samples in [-1, 1].
// Implementations own the underlying device and close Blocks on shutdown.
type Source interface {
	Blocks() <-chan []float32
	Close() error
}
