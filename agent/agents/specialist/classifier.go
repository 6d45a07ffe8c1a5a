package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
	llmx "github.com/tanpawarit/blockagent/agent/llm"
)

type classifierImpl struct {
	runner compose.Runnable[map[string]any, classifierLLMOutput]
	cache  *llmx.Cache[contractx.Classification]
}

type classifierLLMOutput struct {
	QueryType  string   `json:"query_type"`
	Confidence *float64 `json:"confidence"`
}

func newClassifier(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	cache *llmx.Cache[contractx.Classification],
) (*classifierImpl, error) {
	runner, err := compileStructuredLLMGraph[classifierLLMOutput](ctx, chatModel, systemPrompt, "classifier.structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &classifierImpl{runner: runner, cache: cache}, nil
}

// Classify returns Unclassified with an ErrClassification-wrapped error when
// the model output does not fit the expected shape. Context errors are
// returned as-is.
func (c *classifierImpl) Classify(ctx context.Context, query string, history string) (contractx.Classification, error) {
	if strings.TrimSpace(query) == "" {
		return contractx.Unclassified, fmt.Errorf("%w: query is empty", contractx.ErrClassification)
	}
	if cached, ok := c.cache.Get(query, history); ok {
		return cached, nil
	}

	out, err := c.runner.Invoke(ctx, turnInput(query, history))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contractx.Unclassified, ctxErr
		}
		return contractx.Unclassified, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrClassification, err)
	}

	intent, ok := contractx.ParseIntent(out.QueryType)
	if !ok {
		return contractx.Unclassified, fmt.Errorf("%w: unsupported query_type=%q", contractx.ErrClassification, out.QueryType)
	}
	if out.Confidence == nil {
		return contractx.Unclassified, fmt.Errorf("%w: confidence is missing", contractx.ErrClassification)
	}
	confidence := *out.Confidence
	if confidence < 0 || confidence > 1 {
		return contractx.Unclassified, fmt.Errorf("%w: confidence %v outside [0,1]", contractx.ErrClassification, confidence)
	}

	result := contractx.Classification{Intent: intent, Confidence: confidence}
	c.cache.Add(result, query, history)
	return result, nil
}
