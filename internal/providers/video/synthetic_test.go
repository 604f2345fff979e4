package video

import (
	"context"
	"errors"
	"testing"
	"time"

	"veobatch/internal/domain"
	"veobatch/internal/infra"
	"veobatch/internal/storage"
	"veobatch/internal/thumbnail"
)

func TestSyntheticWalksProgressSequence(t *testing.T) {
	media, err := storage.NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	gen := NewSynthetic(media, 0, infra.NopLogger())
	progress := &progressLog{}

	res, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "sunset", RequestID: "abc", AspectRatio: "9:16"}, progress.record)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.VideoURL != "http://localhost:8080/static/videos/abc.mp4" {
		t.Fatalf("VideoURL = %q", res.VideoURL)
	}
	if res.ThumbnailURL != thumbnail.Placeholder {
		t.Fatalf("ThumbnailURL = %q", res.ThumbnailURL)
	}
	if len(res.Data) == 0 {
		t.Fatal("expected placeholder bytes")
	}
	if got := progress.messages[0]; got != domain.ProgressSubmitting {
		t.Fatalf("first message = %q", got)
	}
	if got := progress.messages[len(progress.messages)-1]; got != domain.ProgressThumbnail {
		t.Fatalf("last message = %q", got)
	}
	prev := -1
	for _, msg := range progress.messages {
		pct := domain.ProgressPercentage(domain.JobStatusGenerating, msg)
		if pct <= prev {
			t.Fatalf("progress went backwards at %q (%d <= %d)", msg, pct, prev)
		}
		prev = pct
	}
}

func TestSyntheticDeterministicBytes(t *testing.T) {
	gen := NewSynthetic(nil, 0, infra.NopLogger())
	req := GenerateRequest{Prompt: "sunset", RequestID: "abc"}
	a, err := gen.Generate(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	b, err := gen.Generate(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if string(a.Data) != string(b.Data) {
		t.Fatal("synthetic bytes differ for identical requests")
	}
	if a.VideoURL != "synthetic://videos/abc.mp4" {
		t.Fatalf("VideoURL = %q", a.VideoURL)
	}
}

func TestSyntheticCancelled(t *testing.T) {
	gen := NewSynthetic(nil, time.Hour, infra.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gen.Generate(ctx, GenerateRequest{Prompt: "x"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestMediaKeyFallsBackToSeed(t *testing.T) {
	if got := mediaKey(" ", "prompt"); got != "videos/"+deterministicSeed("prompt")+".mp4" {
		t.Fatalf("mediaKey = %q", got)
	}
}
