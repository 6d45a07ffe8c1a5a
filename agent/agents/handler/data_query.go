package handler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

type DataQueryHandler struct {
	extractor contractx.Extractor
	executor  contractx.DataQueryExecutor
	generator contractx.TextGenerator
	system    string
}

var _ contractx.Handler = (*DataQueryHandler)(nil)

func NewDataQueryHandler(
	extractor contractx.Extractor,
	executor contractx.DataQueryExecutor,
	generator contractx.TextGenerator,
	narratorPrompt string,
) *DataQueryHandler {
	return &DataQueryHandler{
		extractor: extractor,
		executor:  executor,
		generator: generator,
		system:    narratorPrompt,
	}
}

// Handle has no clarification path: an undetermined query type is narrated
// as an error result.
func (h *DataQueryHandler) Handle(ctx context.Context, query string, memory contractx.Memory) (contractx.HandlerResult, error) {
	draft, err := h.extractor.Extract(ctx, query, memory.RecentHistory(0))
	if err != nil {
		if aborted(ctx, err) {
			return contractx.HandlerResult{}, err
		}
		log.Ctx(ctx).Warn().Err(err).Msg("data query extraction failed")
		return failure(memory, "Error processing query", err), nil
	}

	var result contractx.ExecutionResult
	if draft.IsUnknown() {
		result = contractx.ErrorResult("Unknown query type")
	} else {
		result, err = execute(ctx, h.executor, draft)
		if err != nil {
			return contractx.HandlerResult{}, err
		}
	}
	log.Ctx(ctx).Debug().Str("query_type", draft.Type).Msg("data query executed")

	reply, err := h.generator.Generate(ctx, contractx.GenerationRequest{
		System: h.system,
		Prompt: fmt.Sprintf(
			"The user asked: %q\n\nBased on the data retrieved, generate a natural language response explaining the results:\n\n%s\n\nFormat the response in a conversational, helpful manner.",
			query, renderResult(result),
		),
	})
	if err != nil {
		if aborted(ctx, err) {
			return contractx.HandlerResult{}, err
		}
		return failure(memory, "Error processing query", err), nil
	}

	memory.Append(contractx.RoleAssistant, reply)
	return contractx.HandlerResult{Reply: reply, Status: contractx.StatusDataProcessed}, nil
}
