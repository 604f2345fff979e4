package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Video provider identifiers accepted in VIDEO_PROVIDER.
const (
	VideoProviderVeo       = "veo"
	VideoProviderSynthetic = "synthetic"
)

// Settings persistence backends accepted in SETTINGS_BACKEND.
const (
	SettingsBackendSQLite   = "sqlite"
	SettingsBackendFile     = "file"
	SettingsBackendPostgres = "postgres"
	SettingsBackendMemory   = "memory"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	GeminiAPIKey       string
	GeminiBaseURL      string
	VeoModel           string
	GeminiTextModel    string
	VideoProvider      string
	VeoPollInterval    time.Duration
	ThumbnailTimeout   time.Duration
	FFmpegPath         string
	StoragePath        string
	StorageBaseURL     string
	DownloadsPath      string
	SettingsBackend    string
	SettingsPath       string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	EventBufferSize    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// A .env / .env.local file is read first when present; real environment
// variables win over both.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VeoModel:           getEnv("VEO_MODEL", "veo-2.0-generate-001"),
		GeminiTextModel:    getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		VideoProvider:      strings.ToLower(getEnv("VIDEO_PROVIDER", VideoProviderVeo)),
		VeoPollInterval:    time.Second * time.Duration(getEnvInt("VEO_POLL_INTERVAL_SECONDS", 3)),
		ThumbnailTimeout:   time.Second * time.Duration(getEnvInt("THUMBNAIL_TIMEOUT_SECONDS", 10)),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		DownloadsPath:      getEnv("DOWNLOADS_PATH", "./downloads"),
		SettingsBackend:    strings.ToLower(getEnv("SETTINGS_BACKEND", SettingsBackendSQLite)),
		SettingsPath:       strings.TrimSpace(os.Getenv("SETTINGS_PATH")),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		EventBufferSize:    getEnvInt("EVENT_BUFFER_SIZE", 1000),
	}

	switch cfg.VideoProvider {
	case VideoProviderVeo, VideoProviderSynthetic:
	default:
		return nil, fmt.Errorf("VIDEO_PROVIDER %q is not supported", cfg.VideoProvider)
	}

	switch cfg.SettingsBackend {
	case SettingsBackendSQLite:
		if cfg.SettingsPath == "" {
			cfg.SettingsPath = filepath.Join("data", "veobatch.db")
		}
	case SettingsBackendFile:
		if cfg.SettingsPath == "" {
			cfg.SettingsPath = filepath.Join("data", "settings.json")
		}
	case SettingsBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for SETTINGS_BACKEND=postgres")
		}
	case SettingsBackendMemory:
	default:
		return nil, fmt.Errorf("SETTINGS_BACKEND %q is not supported", cfg.SettingsBackend)
	}

	if cfg.VeoPollInterval <= 0 {
		cfg.VeoPollInterval = 3 * time.Second
	}
	if cfg.ThumbnailTimeout <= 0 {
		cfg.ThumbnailTimeout = 10 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
