package generator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
)

const (
	familyOpenAI    = "openai"
	familyAnthropic = "anthropic"
	familyCLI       = "cli"
)

type Options struct {
	OpenAI         OpenAIOptions
	AnthropicKey   string
	AnthropicModel string
	// CLIPath enables the local claude binary for ai_provider "claude-cli".
	CLIPath string
}

// Generator turns a GenerationRequest into normalized candidates using the
// provider the request names, or the deterministic fallback when that
// provider has no credential.
type Generator struct {
	clients         map[string]LLMClient
	fallbackOnError bool
	log             *zap.Logger
}

func New(opts Options, log *zap.Logger) *Generator {
	log = log.Named("generator")
	clients := make(map[string]LLMClient)

	if opts.OpenAI.APIKey != "" {
		if opts.OpenAI.HTTPClient == nil {
			opts.OpenAI.HTTPClient = &http.Client{}
		}
		clients[familyOpenAI] = NewOpenAIClient(opts.OpenAI)
		log.Info("OpenAI-compatible provider configured")
	}
	if opts.AnthropicKey != "" {
		clients[familyAnthropic] = NewAnthropicClient(opts.AnthropicKey, opts.AnthropicModel, log)
		log.Info("Anthropic provider configured", zap.String("model", opts.AnthropicModel))
	}
	if opts.CLIPath != "" {
		clients[familyCLI] = NewCLIClient(opts.CLIPath)
		log.Info("local CLI provider configured", zap.String("path", opts.CLIPath))
	}
	if len(clients) == 0 {
		log.Warn("no provider credentials; using fallback generator")
	}

	return &Generator{clients: clients, log: log}
}

// NewWithClients builds a Generator over explicit clients keyed by provider
// family ("openai", "anthropic", "cli").
func NewWithClients(clients map[string]LLMClient, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{clients: clients, log: log}
}

// WithFallbackOnError returns a copy that substitutes fallback records when the
// provider call fails or yields nothing usable.
func (g *Generator) WithFallbackOnError() *Generator {
	cp := *g
	cp.fallbackOnError = true
	return &cp
}

func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest, count int) ([]models.CandidateQuestion, error) {
	return g.GenerateAt(ctx, req, 0, count)
}

// GenerateAt requests count candidates. offset is the position of the first
// candidate within the job and only affects fallback output.
func (g *Generator) GenerateAt(ctx context.Context, req models.GenerationRequest, offset, count int) ([]models.CandidateQuestion, error) {
	if count <= 0 {
		return nil, nil
	}

	client, ok := g.clients[providerFamily(req.AIProvider)]
	if !ok {
		return g.fallback(req, offset, count), nil
	}

	resp, err := client.Generate(ctx, SystemPrompt(), BuildUserPrompt(req, count))
	if err != nil {
		if g.fallbackOnError {
			g.log.Warn("provider failed; using fallback", zap.String("provider", req.AIProvider), zap.Error(err))
			return g.fallback(req, offset, count), nil
		}
		return nil, fmt.Errorf("generate batch: %w", err)
	}

	records, err := ParseResponse(resp.Content)
	if err != nil {
		g.log.Warn("unparseable provider response",
			zap.String("provider", req.AIProvider),
			zap.Int("content_length", len(resp.Content)),
			zap.Error(err))
		records = nil
	}

	out := Normalize(records, tagsFor(req, req.AIProvider), count, g.log)
	if len(out) == 0 && g.fallbackOnError {
		g.log.Warn("provider returned no usable questions; using fallback", zap.String("provider", req.AIProvider))
		return g.fallback(req, offset, count), nil
	}
	return out, nil
}

func (g *Generator) fallback(req models.GenerationRequest, offset, count int) []models.CandidateQuestion {
	return Normalize(fallbackRecords(req.Topic, offset, count), tagsFor(req, FallbackSource), count, g.log)
}

func tagsFor(req models.GenerationRequest, source string) Tags {
	return Tags{
		Topic:           req.Topic,
		Source:          source,
		DifficultyLevel: req.DifficultyLevel,
		CompanyName:     req.CompanyName,
	}
}

func providerFamily(provider string) string {
	switch provider {
	case "anthropic", "claude":
		return familyAnthropic
	case providerCLI:
		return familyCLI
	default:
		return familyOpenAI
	}
}
