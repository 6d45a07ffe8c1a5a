package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
	openrouterx "github.com/tanpawarit/blockagent/pkg/openrouter"
)

type chatCompleter interface {
	New(ctx context.Context, body openaisdk.ChatCompletionNewParams, opts ...option.RequestOption) (*openaisdk.ChatCompletion, error)
}

// Generator is the single text-generation service shared by every handler.
type Generator struct {
	completions chatCompleter
	model       string
	temperature float64
	maxTokens   int
	cache       *Cache[string]
}

var _ contractx.TextGenerator = (*Generator)(nil)

func NewGenerator(client *openaisdk.Client, cfg openrouterx.Config, cache *Cache[string]) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: generator model is required", contractx.ErrValidation)
	}
	maxTokens := 0
	if cfg.MaxCompletionToken != nil {
		maxTokens = *cfg.MaxCompletionToken
	}
	return newGenerator(&client.Chat.Completions, model, float64(cfg.Temperature), maxTokens, cache), nil
}

func newGenerator(completions chatCompleter, model string, temperature float64, maxTokens int, cache *Cache[string]) *Generator {
	return &Generator{
		completions: completions,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		cache:       cache,
	}
}

func (g *Generator) Generate(ctx context.Context, req contractx.GenerationRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: generation prompt is empty", contractx.ErrValidation)
	}
	if cached, ok := g.cache.Get(g.model, req.System, req.Prompt); ok {
		log.Ctx(ctx).Debug().Str("model", g.model).Msg("generator cache hit")
		return cached, nil
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openaisdk.SystemMessage(system))
	}
	messages = append(messages, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(g.model),
		Messages:    messages,
		Temperature: openaisdk.Float(g.temperature),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(g.maxTokens))
	}

	resp, err := g.completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", contractx.ErrSchemaViolation)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: chat completion content is empty", contractx.ErrSchemaViolation)
	}

	g.cache.Add(text, g.model, req.System, req.Prompt)
	return text, nil
}
