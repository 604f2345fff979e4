package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veobatch/internal/bootstrap"
	"veobatch/internal/http/handlers"
	httpapi "veobatch/internal/http/httpapi"
	"veobatch/internal/infra"
	"veobatch/internal/jobs"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure components")
	}
	defer components.Close()

	orchestrator := jobs.NewOrchestrator(ctx, jobs.Options{
		Generator: components.Generator,
		Exporter:  components.Exporter,
		Events:    jobs.NewEventBus(cfg.EventBufferSize),
		Logger:    infra.Component(logger, "jobs"),
	})

	app := &handlers.App{
		Logger:       infra.Component(logger, "http"),
		Orchestrator: orchestrator,
		Settings:     components.Settings,
		Archiver:     components.Exporter,
		Ideas:        components.Ideas,
		Credential:   components.Credential,
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:             infra.Component(logger, "http"),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMin:    cfg.RateLimitPerMin,
		StaticDir:          components.Media.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("provider", cfg.VideoProvider).
			Str("settings_backend", cfg.SettingsBackend).
			Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}

	// The in-flight provider call is bound to ctx, so the loop exits promptly.
	waitCtx, cancelWait := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWait()
	if err := orchestrator.Wait(waitCtx); err != nil {
		logger.Warn().Err(err).Msg("api: batch still running at exit")
	}
	logger.Info().Msg("api: stopped")
}
