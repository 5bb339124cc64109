package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/onairhq/onair/internal/audio"
	"github.com/onairhq/onair/internal/config"
	"github.com/onairhq/onair/internal/dj"
	"github.com/onairhq/onair/internal/engine"
	"github.com/onairhq/onair/internal/stream"
	"github.com/onairhq/onair/internal/web"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("onair starting up...")

	if err := audio.Init(); err != nil {
		log.Fatalf("audio init failed: %v", err)
	}
	defer audio.Terminate()

	settings := dj.Settings{
		ServerURL:  cfg.ServerURL,
		StationID:  cfg.StationID,
		MountPoint: cfg.MountPoint,
		Username:   cfg.Username,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
	}

	eng := engine.New(settings, dj.WebSocketDialer{}, dj.LogObserver{},
		dj.WithMaxReconnects(cfg.MaxReconnects),
		dj.WithBackoff(cfg.ReconnectBackoff),
		dj.WithSettleDelay(cfg.SettleDelay),
	)

	// Background health sampling at roughly UI refresh rate.
	go eng.Monitor().Run(ctx, time.Second)

	// Fan-out for the local self-monitor (WebRTC + MP3 clients).
	hub := stream.NewHub()

	// goLive owns the capture lifecycle: one capture graph per live session,
	// released on stop so the input device frees up between shows.
	var liveMu sync.Mutex
	goLive := func(showID string) error {
		liveMu.Lock()
		defer liveMu.Unlock()

		if eng.Session().Streaming() {
			return fmt.Errorf("already live")
		}
		src, err := audio.NewCapture()
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		if !eng.Initialize(src) {
			src.Close()
			return fmt.Errorf("capture graph unavailable")
		}
		if !eng.StartStreaming(showID) {
			eng.StopStreaming()
			return fmt.Errorf("could not reach the broadcast backend")
		}
		// Forward monitor frames until this session's pipeline closes.
		go hub.Run(ctx, eng.MonitorFrames())
		return nil
	}
	goOff := func() {
		liveMu.Lock()
		defer liveMu.Unlock()
		eng.StopStreaming()
	}

	monitorHandler := stream.NewMonitorHandler(hub, cfg.MonitorBitrate)

	mux := http.NewServeMux()

	// DJ console
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})

	// Self-monitor streams
	mux.Handle("/monitor", stream.NewMP3Handler(hub, cfg.MonitorBitrate))
	mux.Handle("/offer", monitorHandler)

	// API endpoints
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		sess := eng.Session()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]any{
			"streaming":       sess.Streaming(),
			"state":           sess.State().String(),
			"quality":         eng.ConnectionQuality(),
			"level":           eng.AudioLevel(),
			"listeners":       sess.ListenerCount(),
			"show_id":         sess.ShowID(),
			"monitor_peers":   monitorHandler.PeerCount(),
			"monitor_taps":    hub.TapCount(),
			"station_id":      cfg.StationID,
			"mount_point":     cfg.MountPoint,
			"reconnect_limit": cfg.MaxReconnects,
			"backoff_base_ms": cfg.ReconnectBackoff.Milliseconds(),
		})
	})

	mux.HandleFunc("/api/live", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Live   bool   `json:"live"`
			ShowID string `json:"show_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if !req.Live {
			goOff()
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "live": false})
			return
		}
		if req.ShowID == "" {
			http.Error(w, "show_id required", http.StatusBadRequest)
			return
		}
		if err := goLive(req.ShowID); err != nil {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "live": true, "show_id": req.ShowID})
	})

	mux.HandleFunc("/api/volume", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Volume float64 `json:"volume"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if req.Volume < 0 || req.Volume > 1 {
			http.Error(w, "volume must be 0-1", http.StatusBadRequest)
			return
		}
		eng.SetVolume(req.Volume)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "volume": req.Volume})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		goOff()
		server.Close()
	}()

	log.Printf("onair console on %s (station %d%s)", addr, cfg.StationID, cfg.MountPoint)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
