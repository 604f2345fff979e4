package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"veobatch/internal/bootstrap"
	"veobatch/internal/infra"
	"veobatch/internal/jobs"
)

const eventPollInterval = 500 * time.Millisecond

func main() {
	var (
		fileFlag      string
		keyFlag       string
		aspectFlag    string
		remainingFlag string
		verboseFlag   bool
	)
	flag.StringVar(&fileFlag, "file", "", "File with one prompt per line (defaults to stdin)")
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (fallbacks to GEMINI_API_KEY or the stored key)")
	flag.StringVar(&aspectFlag, "aspect", "", "Aspect ratio override: 16:9 or 9:16")
	flag.StringVar(&remainingFlag, "remaining", "", "Write prompts that were not completed to this file")
	flag.BoolVar(&verboseFlag, "v", false, "Log provider and orchestrator activity")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if !verboseFlag {
		logger = logger.Level(zerolog.WarnLevel)
	}

	blob, err := readPrompts(fileFlag, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read prompts: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure: %v\n", err)
		os.Exit(2)
	}
	defer components.Close()

	settings := components.Settings.Current()
	if aspectFlag != "" {
		settings, err = components.Settings.Update(ctx, "aspect_ratio", aspectFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
	}

	credential := strings.TrimSpace(keyFlag)
	if credential == "" {
		if credential, err = components.Credential(ctx); err != nil {
			logger.Warn().Err(err).Msg("batch: stored credential unavailable")
		}
	}

	bus := jobs.NewEventBus(cfg.EventBufferSize)
	orchestrator := jobs.NewOrchestrator(ctx, jobs.Options{
		Generator: components.Generator,
		Exporter:  components.Exporter,
		Events:    bus,
		Logger:    infra.Component(logger, "jobs"),
	})

	created, err := orchestrator.Start(jobs.StartRequest{Prompts: blob, Credential: credential, Settings: settings})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	out := newRenderer(os.Stdout, created)
	out.header(len(created), settings.AspectRatio)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	var seq int64
	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	interrupts := 0
	for orchestrator.Busy() {
		select {
		case <-signals:
			interrupts++
			if interrupts == 1 {
				orchestrator.RequestStop()
				out.notice("stopping after the current video; press Ctrl+C again to abort")
			} else {
				out.notice("aborting")
				cancel()
			}
		case <-ticker.C:
		}
		seq = out.drain(bus, seq)
	}
	waitCtx, cancelWait := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelWait()
	_ = orchestrator.Wait(waitCtx)
	out.drain(bus, seq)

	remaining := orchestrator.PendingInput()
	out.summary(orchestrator.Jobs(), remaining)

	if remainingFlag != "" && remaining != "" {
		if err := os.WriteFile(remainingFlag, []byte(remaining+"\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write remaining prompts: %v\n", err)
		}
	}
	if strings.TrimSpace(remaining) != "" {
		os.Exit(1)
	}
}

func readPrompts(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
