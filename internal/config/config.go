package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Broadcast backend connection
	ServerURL  string // base address of the ingest backend (http/https)
	StationID  int
	MountPoint string
	Username   string
	Password   string
	APIKey     string

	// Local operator surface
	Port int

	// Transport behavior
	MaxReconnects    int           // reconnect attempts per outage
	ReconnectBackoff time.Duration // linear backoff base (delay = base * attempt)
	SettleDelay      time.Duration // wait before judging a connect attempt

	// Self-monitor
	MonitorBitrate int // opus bitrate for the WebRTC monitor
}

// Load reads configuration from a .env file (if present) and environment
// variables with sane defaults.
func Load() Config {
	_ = godotenv.Load() // best-effort; real env vars win anyway

	return Config{
		ServerURL:  envStr("STREAM_SERVER_URL", "http://localhost:8000"),
		StationID:  envInt("STREAM_STATION_ID", 1),
		MountPoint: envStr("STREAM_MOUNT_POINT", "/live"),
		Username:   envStr("STREAM_USERNAME", "source"),
		Password:   envStr("STREAM_PASSWORD", ""),
		APIKey:     envStr("STREAM_API_KEY", ""),

		Port: envInt("ONAIR_PORT", 8090),

		MaxReconnects:    envInt("STREAM_MAX_RECONNECTS", 3),
		ReconnectBackoff: time.Duration(envInt("STREAM_RECONNECT_BACKOFF_MS", 2000)) * time.Millisecond,
		SettleDelay:      time.Duration(envInt("STREAM_SETTLE_MS", 2000)) * time.Millisecond,

		MonitorBitrate: envInt("ONAIR_MONITOR_BITRATE", 96000),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
