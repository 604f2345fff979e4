package infra

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("VIDEO_PROVIDER", "")
	t.Setenv("SETTINGS_BACKEND", "")
	t.Setenv("SETTINGS_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
	if cfg.VideoProvider != VideoProviderVeo {
		t.Fatalf("VideoProvider = %q, want %q", cfg.VideoProvider, VideoProviderVeo)
	}
	if cfg.SettingsBackend != SettingsBackendSQLite {
		t.Fatalf("SettingsBackend = %q", cfg.SettingsBackend)
	}
	if cfg.SettingsPath != filepath.Join("data", "veobatch.db") {
		t.Fatalf("SettingsPath = %q", cfg.SettingsPath)
	}
	if cfg.ThumbnailTimeout != 10*time.Second {
		t.Fatalf("ThumbnailTimeout = %s", cfg.ThumbnailTimeout)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigHonorsExplicitStorageBaseURL(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.com/static")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "https://cdn.example.com/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	t.Setenv("VIDEO_PROVIDER", "sora")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestLoadConfigPostgresBackendRequiresDatabaseURL(t *testing.T) {
	t.Setenv("SETTINGS_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://example")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SettingsBackend != SettingsBackendPostgres {
		t.Fatalf("SettingsBackend = %q", cfg.SettingsBackend)
	}
}

func TestLoadConfigFileBackendDefaultPath(t *testing.T) {
	t.Setenv("SETTINGS_BACKEND", "FILE")
	t.Setenv("SETTINGS_PATH", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SettingsPath != filepath.Join("data", "settings.json") {
		t.Fatalf("SettingsPath = %q", cfg.SettingsPath)
	}
}

func TestLoadConfigCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}
