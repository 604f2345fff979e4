package video

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veobatch/internal/domain"
	"veobatch/internal/providers/genai"
	"veobatch/internal/storage"
	"veobatch/internal/thumbnail"
)

// DefaultPollInterval is how long VEO waits between operation refreshes.
const DefaultPollInterval = 3 * time.Second

// VEOOptions wires the collaborators of the Veo provider.
type VEOOptions struct {
	Client       *genai.Client
	Media        *storage.FileStore
	Thumbnails   thumbnail.Extractor
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// VEO renders videos through the Gemini long-running video API.
type VEO struct {
	client       *genai.Client
	media        *storage.FileStore
	thumbs       thumbnail.Extractor
	pollInterval time.Duration
	logger       zerolog.Logger
}

func NewVEO(opts VEOOptions) (*VEO, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("veo: genai client is required")
	}
	if opts.Media == nil {
		return nil, fmt.Errorf("veo: media store is required")
	}
	thumbs := opts.Thumbnails
	if thumbs == nil {
		thumbs = thumbnail.Static{}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &VEO{
		client:       opts.Client,
		media:        opts.Media,
		thumbs:       thumbs,
		pollInterval: interval,
		logger:       opts.Logger,
	}, nil
}

func (v *VEO) Generate(ctx context.Context, req GenerateRequest, onProgress ProgressFunc) (*Result, error) {
	report := progressReporter(onProgress)
	client := v.client.WithAPIKey(req.Credential)

	report(domain.ProgressSubmitting)
	op, err := client.GenerateVideos(ctx, genai.VideoRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return nil, providerError("submit", err)
	}
	report(domain.ProgressStarted)

	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for i := 0; !op.Done; i++ {
		report(domain.PollMessages[i%len(domain.PollMessages)])
		select {
		case <-ctx.Done():
			return nil, providerError("poll", ctx.Err())
		case <-ticker.C:
		}

		next, err := client.GetOperation(ctx, op.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, providerError("poll", ctx.Err())
			}
			v.logger.Warn().
				Err(err).
				Str("request_id", req.RequestID).
				Str("operation", op.Name).
				Msg("veo: poll failed, retrying")
			continue
		}
		op = next
	}

	if op.Error != nil {
		return nil, providerError("operation", op.Error)
	}
	uri := op.VideoURI()
	if uri == "" {
		if reasons := op.FilteredReasons(); len(reasons) > 0 {
			return nil, fmt.Errorf("%w: video withheld: %s", domain.ErrProviderFailure, strings.Join(reasons, "; "))
		}
		return nil, fmt.Errorf("%w: operation finished without a video", domain.ErrProviderFailure)
	}

	report(domain.ProgressFinalizing)
	data, format, err := client.Download(ctx, uri)
	if err != nil {
		return nil, providerError("download", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: downloaded video is empty", domain.ErrProviderFailure)
	}
	if format == "" || !strings.HasPrefix(format, "video/") {
		format = "video/mp4"
	}

	key, err := v.media.Write(ctx, mediaKey(req.RequestID, req.Prompt), data)
	if err != nil {
		return nil, providerError("store", err)
	}

	report(domain.ProgressThumbnail)
	source, err := v.media.Path(key)
	if err != nil {
		source = v.media.URL(key)
	}
	thumb := v.thumbs.Extract(ctx, source)

	v.logger.Info().
		Str("request_id", req.RequestID).
		Str("model", client.VideoModel()).
		Int("bytes", len(data)).
		Msg("veo: video generated")

	return &Result{
		VideoURL:     v.media.URL(key),
		ThumbnailURL: thumb,
		Format:       format,
		Data:         data,
	}, nil
}

var _ Generator = (*VEO)(nil)
