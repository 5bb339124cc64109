package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"STREAM_SERVER_URL", "STREAM_STATION_ID", "STREAM_MOUNT_POINT",
		"STREAM_USERNAME", "STREAM_PASSWORD", "STREAM_API_KEY",
		"ONAIR_PORT", "STREAM_MAX_RECONNECTS",
		"STREAM_RECONNECT_BACKOFF_MS", "STREAM_SETTLE_MS",
		"ONAIR_MONITOR_BITRATE",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.ServerURL != "http://localhost:8000" {
		t.Errorf("ServerURL = %q, want default", cfg.ServerURL)
	}
	if cfg.StationID != 1 {
		t.Errorf("StationID = %d, want 1", cfg.StationID)
	}
	if cfg.MountPoint != "/live" {
		t.Errorf("MountPoint = %q, want '/live'", cfg.MountPoint)
	}
	if cfg.Username != "source" {
		t.Errorf("Username = %q, want 'source'", cfg.Username)
	}
	if cfg.Password != "" {
		t.Errorf("Password = %q, want empty default", cfg.Password)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty default", cfg.APIKey)
	}
	if cfg.Port != 8090 {
		t.Errorf("Port = %d, want 8090", cfg.Port)
	}
	if cfg.MaxReconnects != 3 {
		t.Errorf("MaxReconnects = %d, want 3", cfg.MaxReconnects)
	}
	if cfg.ReconnectBackoff != 2*time.Second {
		t.Errorf("ReconnectBackoff = %v, want 2s", cfg.ReconnectBackoff)
	}
	if cfg.SettleDelay != 2*time.Second {
		t.Errorf("SettleDelay = %v, want 2s", cfg.SettleDelay)
	}
	if cfg.MonitorBitrate != 96000 {
		t.Errorf("MonitorBitrate = %d, want 96000", cfg.MonitorBitrate)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STREAM_SERVER_URL", "https://radio.example.com")
	t.Setenv("STREAM_STATION_ID", "7")
	t.Setenv("STREAM_MOUNT_POINT", "/main")
	t.Setenv("STREAM_USERNAME", "dj")
	t.Setenv("STREAM_PASSWORD", "hackme")
	t.Setenv("STREAM_API_KEY", "key-123")
	t.Setenv("ONAIR_PORT", "3000")
	t.Setenv("STREAM_MAX_RECONNECTS", "5")
	t.Setenv("STREAM_RECONNECT_BACKOFF_MS", "500")
	t.Setenv("STREAM_SETTLE_MS", "100")
	t.Setenv("ONAIR_MONITOR_BITRATE", "128000")

	cfg := Load()

	if cfg.ServerURL != "https://radio.example.com" {
		t.Errorf("ServerURL = %q, want env override", cfg.ServerURL)
	}
	if cfg.StationID != 7 {
		t.Errorf("StationID = %d, want 7", cfg.StationID)
	}
	if cfg.MountPoint != "/main" {
		t.Errorf("MountPoint = %q, want '/main'", cfg.MountPoint)
	}
	if cfg.Username != "dj" {
		t.Errorf("Username = %q, want 'dj'", cfg.Username)
	}
	if cfg.Password != "hackme" {
		t.Errorf("Password = %q, want env override", cfg.Password)
	}
	if cfg.APIKey != "key-123" {
		t.Errorf("APIKey = %q, want env override", cfg.APIKey)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.MaxReconnects != 5 {
		t.Errorf("MaxReconnects = %d, want 5", cfg.MaxReconnects)
	}
	if cfg.ReconnectBackoff != 500*time.Millisecond {
		t.Errorf("ReconnectBackoff = %v, want 500ms", cfg.ReconnectBackoff)
	}
	if cfg.SettleDelay != 100*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 100ms", cfg.SettleDelay)
	}
	if cfg.MonitorBitrate != 128000 {
		t.Errorf("MonitorBitrate = %d, want 128000", cfg.MonitorBitrate)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("STREAM_STATION_ID", "not-a-number")
	cfg := Load()
	if cfg.StationID != 1 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 1", cfg.StationID)
	}
}

func TestEnvStrEmpty(t *testing.T) {
	os.Unsetenv("STREAM_MOUNT_POINT")
	cfg := Load()
	if cfg.MountPoint != "/live" {
		t.Errorf("Unset env should use fallback: got %q", cfg.MountPoint)
	}
}
