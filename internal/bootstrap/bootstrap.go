package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"veobatch/internal/domain"
	"veobatch/internal/infra"
	"veobatch/internal/infra/credentials"
	"veobatch/internal/providers/genai"
	"veobatch/internal/providers/prompt"
	"veobatch/internal/providers/video"
	"veobatch/internal/settings"
	"veobatch/internal/storage"
	"veobatch/internal/thumbnail"
)

// syntheticStep paces the offline generator so progress is watchable.
const syntheticStep = 400 * time.Millisecond

// Components holds everything a binary needs to run batches.
type Components struct {
	Generator video.Generator
	Exporter  *storage.Exporter
	Media     *storage.FileStore
	Settings  *settings.Store
	Ideas     *prompt.IdeaGenerator
	Gemini    *genai.Client

	pool    *pgxpool.Pool
	closers []func() error
	creds   *credentials.Store
	envKey  string
	logger  zerolog.Logger
}

// Build wires the collaborators described by cfg. Close releases them.
func Build(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Components, error) {
	c := &Components{envKey: strings.TrimSpace(cfg.GeminiAPIKey), logger: logger}

	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.pool = pool
		runner := infra.NewSQLRunner(pool, infra.Component(logger, "sql"))
		c.creds = credentials.NewStore(runner)
		if err := c.creds.EnsureSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("bootstrap: failed to ensure credentials schema")
		}
	}

	kv, err := c.settingsKV(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Settings = settings.NewStore(kv, infra.Component(logger, "settings"))
	c.Settings.Load(ctx)

	media, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("configure media storage: %w", err)
	}
	c.Media = media

	downloads, err := storage.NewFileStore(cfg.DownloadsPath, "")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("configure downloads: %w", err)
	}
	c.Exporter = storage.NewExporter(downloads)

	genaiLogger := infra.Component(logger, "genai")
	c.Gemini, err = genai.NewClient(genai.Options{
		BaseURL:    cfg.GeminiBaseURL,
		VideoModel: cfg.VeoModel,
		TextModel:  cfg.GeminiTextModel,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Logger:     &genaiLogger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Ideas = prompt.NewIdeaGenerator(c.Gemini, infra.Component(logger, "prompt"))

	var thumbs thumbnail.Extractor = thumbnail.Static{}
	ffmpeg := thumbnail.NewFFmpeg(cfg.FFmpegPath, cfg.ThumbnailTimeout, infra.Component(logger, "thumbnail"))
	if ffmpeg.Available() {
		thumbs = ffmpeg
	} else {
		logger.Warn().Str("ffmpeg", cfg.FFmpegPath).Msg("bootstrap: ffmpeg not found, thumbnails use the placeholder")
	}

	switch cfg.VideoProvider {
	case infra.VideoProviderSynthetic:
		c.Generator = video.NewSynthetic(media, syntheticStep, infra.Component(logger, "synthetic"))
	default:
		c.Generator, err = video.NewVEO(video.VEOOptions{
			Client:       c.Gemini,
			Media:        media,
			Thumbnails:   thumbs,
			PollInterval: cfg.VeoPollInterval,
			Logger:       infra.Component(logger, "veo"),
		})
		if err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// settingsKV opens the configured backend. A backend that cannot be opened
// falls back to memory so settings still work for this process; only a
// missing DATABASE_URL for the postgres backend is fatal.
func (c *Components) settingsKV(ctx context.Context, cfg *infra.Config) (settings.KV, error) {
	if cfg.SettingsBackend == infra.SettingsBackendPostgres && c.pool == nil {
		return nil, fmt.Errorf("settings: postgres backend needs DATABASE_URL")
	}
	kv, err := c.openSettingsKV(ctx, cfg)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("backend", cfg.SettingsBackend).
			Str("path", cfg.SettingsPath).
			Msg("bootstrap: settings backend unavailable, keeping settings in memory")
		return settings.NewMemoryKV(), nil
	}
	return kv, nil
}

func (c *Components) openSettingsKV(ctx context.Context, cfg *infra.Config) (settings.KV, error) {
	switch cfg.SettingsBackend {
	case infra.SettingsBackendMemory:
		return settings.NewMemoryKV(), nil
	case infra.SettingsBackendFile:
		return settings.NewFileKV(cfg.SettingsPath), nil
	case infra.SettingsBackendPostgres:
		kv := settings.NewPostgresKV(infra.NewSQLRunner(c.pool, infra.Component(c.logger, "sql")))
		if err := kv.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("%w: ensure schema: %v", domain.ErrPersistence, err)
		}
		return kv, nil
	default:
		kv, err := settings.OpenSQLite(cfg.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		c.closers = append(c.closers, kv.Close)
		return kv, nil
	}
}

// Credential returns GEMINI_API_KEY, or the key stored in the database when
// the environment has none.
func (c *Components) Credential(ctx context.Context) (string, error) {
	if c.envKey != "" {
		return c.envKey, nil
	}
	if c.creds == nil {
		return "", nil
	}
	key, err := c.creds.GeminiAPIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("load stored gemini api key: %w", err)
	}
	return key, nil
}

func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn().Err(err).Msg("bootstrap: close failed")
		}
	}
	c.closers = nil
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}
