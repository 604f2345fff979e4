package video

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"veobatch/internal/domain"
)

// ProgressFunc receives human-readable progress messages while a video renders.
type ProgressFunc func(message string)

type GenerateRequest struct {
	Prompt      string
	Credential  string
	AspectRatio string
	RequestID   string
}

// Result describes a finished video. VideoURL is playable by the client;
// Data holds the raw bytes for local export.
type Result struct {
	VideoURL     string
	ThumbnailURL string
	Format       string
	Data         []byte
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest, onProgress ProgressFunc) (*Result, error)
}

func progressReporter(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(string) {}
	}
	return fn
}

func providerError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrProviderFailure, stage, err)
}

func mediaKey(requestID, prompt string) string {
	id := strings.TrimSpace(requestID)
	if id == "" {
		id = deterministicSeed(prompt)
	}
	return "videos/" + id + ".mp4"
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
