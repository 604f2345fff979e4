package video

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veobatch/internal/domain"
	"veobatch/internal/storage"
	"veobatch/internal/thumbnail"
)

// Synthetic walks the same progress sequence as VEO without calling out. It
// is meant for local development and demos.
type Synthetic struct {
	media  *storage.FileStore
	thumbs thumbnail.Extractor
	step   time.Duration
	logger zerolog.Logger
}

// NewSynthetic builds an offline generator. A nil media store keeps the
// rendered bytes in memory only and reports a data-less URL.
func NewSynthetic(media *storage.FileStore, step time.Duration, logger zerolog.Logger) *Synthetic {
	if step < 0 {
		step = 0
	}
	return &Synthetic{media: media, thumbs: thumbnail.Static{}, step: step, logger: logger}
}

func (s *Synthetic) Generate(ctx context.Context, req GenerateRequest, onProgress ProgressFunc) (*Result, error) {
	report := progressReporter(onProgress)

	sequence := make([]string, 0, len(domain.PollMessages)+3)
	sequence = append(sequence, domain.ProgressSubmitting, domain.ProgressStarted)
	sequence = append(sequence, domain.PollMessages...)
	sequence = append(sequence, domain.ProgressFinalizing)
	for _, msg := range sequence {
		if err := s.wait(ctx); err != nil {
			return nil, providerError("synthetic", err)
		}
		report(msg)
	}

	seed := deterministicSeed(req.RequestID, req.Prompt, req.AspectRatio)
	data := renderSyntheticVideo(seed, req.Prompt, req.AspectRatio)
	key := mediaKey(req.RequestID, req.Prompt)
	url := "synthetic://" + key
	if s.media != nil {
		stored, err := s.media.Write(ctx, key, data)
		if err != nil {
			return nil, providerError("store", err)
		}
		url = s.media.URL(stored)
	}

	report(domain.ProgressThumbnail)
	thumb := s.thumbs.Extract(ctx, url)

	s.logger.Debug().
		Str("request_id", req.RequestID).
		Str("seed", seed).
		Msg("synthetic: generated placeholder video")

	return &Result{VideoURL: url, ThumbnailURL: thumb, Format: "video/mp4", Data: data}, nil
}

func (s *Synthetic) wait(ctx context.Context) error {
	if s.step == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.step)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func renderSyntheticVideo(seed, prompt, aspect string) []byte {
	lines := []string{
		"Synthetic Veo video placeholder",
		fmt.Sprintf("Seed: %s", seed),
		fmt.Sprintf("Aspect ratio: %s", aspect),
		fmt.Sprintf("Prompt: %s", strings.TrimSpace(prompt)),
	}
	return []byte(strings.Join(lines, "\n"))
}

var _ Generator = (*Synthetic)(nil)
