// Package insight generates narrative commentary on analysis results
// through a language model. Generation failures degrade to a descriptive
// message rather than an error so a missing or misbehaving model never
// blocks the rest of an analysis.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	perrors "github.com/procsight/procsight/pkg/errors"
)

// DefaultModel is the model used when configuration does not name one.
const DefaultModel = "gemini-1.5-flash"

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 30 * time.Second

// Generator produces text from a prompt. Implementations wrap a model
// backend; tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// GeminiConfig configures the Gemini-backed generator.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiClient implements Generator against the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, perrors.New(perrors.CodeExternalCall, "no API key configured").
			WithContext("service", "gemini")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, perrors.ExternalCall("gemini", err)
	}

	return &GeminiClient{
		client:  client,
		model:   client.GenerativeModel(cfg.Model),
		timeout: cfg.Timeout,
	}, nil
}

// Generate runs one generation call with the configured timeout.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", perrors.Wrap(err, perrors.CodeExternalTimeout, "generation timed out").
				WithContext("service", "gemini")
		}
		return "", perrors.ExternalCall("gemini", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", perrors.New(perrors.CodeExternalCall, "empty model response").
			WithContext("service", "gemini")
	}
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}

// Insights wraps a Generator with the analysis prompts.
type Insights struct {
	gen Generator
}

// New creates an Insights facade over a generator.
func New(gen Generator) *Insights {
	return &Insights{gen: gen}
}

// ProcessInsights asks the model to comment on the overall process.
// Failure returns a descriptive message, never an error.
func (i *Insights) ProcessInsights(ctx context.Context, summary string) string {
	return i.generate(ctx, processInsightsPrompt(summary))
}

// KPIRecommendations asks the model for improvement recommendations.
// Failure returns a descriptive message, never an error.
func (i *Insights) KPIRecommendations(ctx context.Context, summary string) string {
	return i.generate(ctx, kpiRecommendationsPrompt(summary))
}

// Ask answers a free-form question about the analyzed process.
// Failure returns a descriptive message, never an error.
func (i *Insights) Ask(ctx context.Context, summary, question string) string {
	return i.generate(ctx, questionPrompt(summary, question))
}

func (i *Insights) generate(ctx context.Context, prompt string) string {
	if i.gen == nil {
		return "Insights unavailable: no language model configured."
	}
	text, err := i.gen.Generate(ctx, prompt)
	if err != nil {
		return fmt.Sprintf("Insights unavailable: %v", err)
	}
	return text
}
