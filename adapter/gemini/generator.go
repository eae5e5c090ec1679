package gemini

import (
	"context"
	"fmt"
	"iter"
	"math"

	"google.golang.org/genai"

	"github.com/muikit/muikit"
)

// GenerationConfig carries the sampling settings of one call.
type GenerationConfig struct {
	Temperature     float64
	MaxOutputTokens int
}

// Generation is one response (or one stream chunk) from the model.
type Generation interface {
	Text() string
	// FinishReason is the first candidate's finish reason, or "" when there is none.
	FinishReason() string
}

// contentReporter is implemented by generations that can tell an empty reply from a
// missing one.
type contentReporter interface {
	hasContent() bool
}

// Generator is the slice of the genai SDK this package uses. Tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Generation, error)
	GenerateStream(ctx context.Context, prompt string, cfg GenerationConfig) iter.Seq2[Generation, error]
}

type genaiGeneration struct {
	resp *genai.GenerateContentResponse
}

func (g genaiGeneration) Text() string {
	if g.resp == nil {
		return ""
	}
	return g.resp.Text()
}

// hasContent reports whether the first candidate carries content parts. A blocked
// prompt comes back with no candidates.
func (g genaiGeneration) hasContent() bool {
	if g.resp == nil || len(g.resp.Candidates) == 0 || g.resp.Candidates[0] == nil {
		return false
	}
	content := g.resp.Candidates[0].Content
	return content != nil && len(content.Parts) > 0
}

func (g genaiGeneration) FinishReason() string {
	if g.resp == nil || len(g.resp.Candidates) == 0 || g.resp.Candidates[0] == nil {
		return ""
	}
	return string(g.resp.Candidates[0].FinishReason)
}

// genaiGenerator implements Generator over a genai.Client bound to one model.
type genaiGenerator struct {
	models *genai.Models
	model  string
}

func newGenaiGenerator(ctx context.Context, cfg Config) (*genaiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %w", muikit.ErrConfig, err)
	}
	return &genaiGenerator{models: client.Models, model: cfg.Model}, nil
}

func contentConfig(cfg GenerationConfig) *genai.GenerateContentConfig {
	maxTokens := cfg.MaxOutputTokens
	if maxTokens > math.MaxInt32 {
		maxTokens = math.MaxInt32
	}
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(maxTokens), //nolint:gosec // clamped above
	}
}

func (g *genaiGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Generation, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), contentConfig(cfg))
	if err != nil {
		return nil, err
	}
	return genaiGeneration{resp: resp}, nil
}

func (g *genaiGenerator) GenerateStream(ctx context.Context, prompt string, cfg GenerationConfig) iter.Seq2[Generation, error] {
	return func(yield func(Generation, error) bool) {
		for resp, err := range g.models.GenerateContentStream(ctx, g.model, genai.Text(prompt), contentConfig(cfg)) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(genaiGeneration{resp: resp}, nil) {
				return
			}
		}
	}
}

var _ Generator = (*genaiGenerator)(nil)
