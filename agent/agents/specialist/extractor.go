package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

type extractorImpl struct {
	domain contractx.AgentType
	runner compose.Runnable[map[string]any, extractorLLMOutput]
	known  map[string]struct{}
}

// extractorLLMOutput accepts either domain's type key.
type extractorLLMOutput struct {
	QueryType         string         `json:"query_type,omitempty"`
	TransactionType   string         `json:"transaction_type,omitempty"`
	Parameters        map[string]any `json:"parameters"`
	MissingParameters []string       `json:"missing_parameters,omitempty"`
}

func (o extractorLLMOutput) draftType() string {
	if t := strings.TrimSpace(o.TransactionType); t != "" {
		return t
	}
	return strings.TrimSpace(o.QueryType)
}

func knownDraftTypes(domain contractx.AgentType) map[string]struct{} {
	switch domain {
	case contractx.AgentTypeDataQuery:
		return map[string]struct{}{
			contractx.QueryPoolLiquidity: {},
			contractx.QueryRecentSwaps:   {},
		}
	case contractx.AgentTypeTransaction:
		return map[string]struct{}{
			contractx.TxTokenSwap:    {},
			contractx.TxTokenBalance: {},
		}
	default:
		return map[string]struct{}{}
	}
}

func newExtractor(
	ctx context.Context,
	domain contractx.AgentType,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*extractorImpl, error) {
	runner, err := compileStructuredLLMGraph[extractorLLMOutput](ctx, chatModel, systemPrompt, string(domain)+".extractor_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s extractor graph: %v", contractx.ErrModelInvoke, domain, err)
	}
	return &extractorImpl{
		domain: domain,
		runner: runner,
		known:  knownDraftTypes(domain),
	}, nil
}

// Extract turns the query into a Draft. Types outside the domain collapse
// to "unknown"; missing parameters are kept only for transactions.
func (e *extractorImpl) Extract(ctx context.Context, query string, history string) (contractx.Draft, error) {
	out, err := e.runner.Invoke(ctx, turnInput(query, history))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contractx.Draft{}, ctxErr
		}
		return contractx.Draft{}, fmt.Errorf("%w: %s extractor invoke: %v", contractx.ErrExtraction, e.domain, err)
	}

	draft := contractx.Draft{
		Type:       strings.ToLower(out.draftType()),
		Parameters: map[string]any{},
	}
	if _, ok := e.known[draft.Type]; !ok {
		draft.Type = contractx.DraftUnknown
	}
	for k, v := range out.Parameters {
		key := strings.TrimSpace(k)
		if key == "" || v == nil {
			continue
		}
		draft.Parameters[key] = v
	}
	if e.domain == contractx.AgentTypeTransaction {
		for _, name := range out.MissingParameters {
			if name = strings.TrimSpace(name); name != "" {
				draft.MissingParameters = append(draft.MissingParameters, name)
			}
		}
	}
	return draft, nil
}
