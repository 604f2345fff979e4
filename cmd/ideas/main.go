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

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"veobatch/internal/bootstrap"
	"veobatch/internal/infra"
	"veobatch/internal/providers/prompt"
)

var (
	ideaStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00E6FF"))
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

func main() {
	var (
		keyFlag   string
		countFlag int
		copyFlag  bool
		rawFlag   bool
	)
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (fallbacks to GEMINI_API_KEY or the stored key)")
	flag.IntVar(&countFlag, "count", prompt.DefaultCount, "Prompts to generate per idea")
	flag.BoolVar(&copyFlag, "copy", false, "Copy the generated prompts to the clipboard")
	flag.BoolVar(&rawFlag, "raw", false, "Print only the prompts, one per line")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := infra.NewLogger(cfg.AppEnv).Level(zerolog.WarnLevel)

	ideas := strings.Join(flag.Args(), "\n")
	if strings.TrimSpace(ideas) == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read ideas: %v\n", err)
			os.Exit(2)
		}
		ideas = string(data)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure: %v\n", err)
		os.Exit(2)
	}
	defer components.Close()

	credential := strings.TrimSpace(keyFlag)
	if credential == "" {
		credential, _ = components.Credential(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	results, genErr := components.Ideas.Generate(ctx, prompt.IdeaRequest{
		Ideas:      ideas,
		Count:      countFlag,
		Credential: credential,
	})

	for _, result := range results {
		if rawFlag {
			break
		}
		fmt.Println(ideaStyle.Render(result.Idea))
		for _, p := range result.Prompts {
			fmt.Println("  " + p)
		}
	}
	flat := prompt.Flatten(results)
	if rawFlag && flat != "" {
		fmt.Println(flat)
	}

	if copyFlag && flat != "" {
		if err := clipboard.WriteAll(flat); err != nil {
			fmt.Fprintf(os.Stderr, "copy to clipboard: %v\n", err)
		} else if !rawFlag {
			fmt.Println(hintStyle.Render("prompts copied to clipboard"))
		}
	}

	if genErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", genErr)
		os.Exit(1)
	}
}
