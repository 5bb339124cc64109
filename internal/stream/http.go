package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/exec"

	"github.com/onairhq/onair/internal/audio"
)

// MP3Handler serves the monitor signal as a chunked MP3 stream over HTTP.
// Each connection spawns an FFmpeg process to encode PCM in real time,
// for players that cannot do WebRTC.
type MP3Handler struct {
	hub     *Hub
	bitrate int
}

// NewMP3Handler creates an HTTP monitor stream handler. bitrate is the
// MP3 target in bits per second.
func NewMP3Handler(hub *Hub, bitrate int) *MP3Handler {
	return &MP3Handler{hub: hub, bitrate: bitrate}
}

func (h *MP3Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", "onair monitor")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "s16le",
		"-ar", fmt.Sprint(audio.MonitorSampleRate),
		"-ac", fmt.Sprint(audio.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", h.bitrate/1000),
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Printf("mp3 monitor: stdin pipe error: %v", err)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Printf("mp3 monitor: stdout pipe error: %v", err)
		return
	}

	if err := cmd.Start(); err != nil {
		log.Printf("mp3 monitor: ffmpeg start error: %v", err)
		return
	}

	tap := h.hub.Attach()
	defer h.hub.Detach(tap)

	log.Printf("mp3 monitor client connected (taps: %d)", h.hub.TapCount())
	defer log.Printf("mp3 monitor client disconnected")

	go func() {
		defer stdin.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tap.Done():
				return
			case frame, ok := <-tap.C:
				if !ok {
					return
				}
				if _, err := stdin.Write(audio.SamplesToBytes(frame)); err != nil {
					return
				}
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				break
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("mp3 monitor: ffmpeg read error: %v", err)
			}
			break
		}
	}

	cmd.Wait()
}
