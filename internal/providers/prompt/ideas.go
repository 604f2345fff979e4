package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"veobatch/internal/domain"
	"veobatch/internal/providers/genai"
)

const (
	DefaultCount = 5
	MaxCount     = 10
)

const systemInstructionTemplate = "Anda adalah asisten kreatif untuk produser video. Tugas Anda adalah mengambil ide sederhana dari pengguna dan mengembangkannya menjadi %d prompt yang detail, kaya visual, dan sinematik untuk model AI text-to-video seperti VEO. Setiap prompt harus berupa satu paragraf deskriptif. Fokus pada aksi, suasana, pencahayaan, dan sudut kamera. Hasilkan hanya prompt, masing-masing di baris baru, tanpa pembukaan atau penomoran."

// TextGenerator is the slice of the Gemini client the idea generator needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, req genai.TextRequest) (string, error)
}

// IdeaRequest asks for Count prompts per non-blank line of Ideas.
type IdeaRequest struct {
	Ideas      string `json:"ideas"`
	Count      int    `json:"count"`
	Credential string `json:"-"`
}

type IdeaResult struct {
	Idea    string   `json:"idea"`
	Prompts []string `json:"prompts"`
}

// IdeaGenerator expands short ideas into detailed video prompts.
type IdeaGenerator struct {
	client *genai.Client
	text   func(credential string) TextGenerator
	logger zerolog.Logger
}

func NewIdeaGenerator(client *genai.Client, logger zerolog.Logger) *IdeaGenerator {
	g := &IdeaGenerator{client: client, logger: logger}
	g.text = func(credential string) TextGenerator {
		return g.client.WithAPIKey(credential)
	}
	return g
}

// Generate processes ideas in order and stops at the first failure, returning
// what was produced so far along with the error.
func (g *IdeaGenerator) Generate(ctx context.Context, req IdeaRequest) ([]IdeaResult, error) {
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		return nil, fmt.Errorf("%w: credential is required", domain.ErrPrecondition)
	}
	ideas := domain.ParsePrompts(req.Ideas)
	if len(ideas) == 0 {
		return nil, fmt.Errorf("%w: no ideas to expand", domain.ErrPrecondition)
	}
	count := ClampCount(req.Count)
	model := g.text(credential)

	results := make([]IdeaResult, 0, len(ideas))
	for _, idea := range ideas {
		text, err := model.GenerateText(ctx, genai.TextRequest{
			SystemInstruction: fmt.Sprintf(systemInstructionTemplate, count),
			Prompt:            fmt.Sprintf("Ini ide dari pengguna: \"%s\"", idea),
		})
		if err != nil {
			g.logger.Error().Err(err).Str("idea", idea).Msg("prompt: idea expansion failed")
			return results, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
		}
		results = append(results, IdeaResult{Idea: idea, Prompts: splitPrompts(text)})
	}
	return results, nil
}

// ClampCount bounds the number of prompts requested per idea.
func ClampCount(n int) int {
	switch {
	case n <= 0:
		return DefaultCount
	case n > MaxCount:
		return MaxCount
	default:
		return n
	}
}

// Flatten joins every generated prompt one per line, ready for submission.
func Flatten(results []IdeaResult) string {
	var all []string
	for _, r := range results {
		all = append(all, r.Prompts...)
	}
	return domain.JoinPrompts(all)
}

func splitPrompts(text string) []string {
	lines := domain.ParsePrompts(text)
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
