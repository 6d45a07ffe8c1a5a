package handler

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

type ConversationHandler struct {
	generator contractx.TextGenerator
	persona   string
}

var _ contractx.Handler = (*ConversationHandler)(nil)

func NewConversationHandler(generator contractx.TextGenerator, personaPrompt string) *ConversationHandler {
	return &ConversationHandler{generator: generator, persona: personaPrompt}
}

func (h *ConversationHandler) Handle(ctx context.Context, query string, memory contractx.Memory) (contractx.HandlerResult, error) {
	reply, err := h.generator.Generate(ctx, contractx.GenerationRequest{
		System: h.persona,
		Prompt: fmt.Sprintf("%s\n%s", memory.RecentHistory(0), query),
	})
	if err != nil {
		if aborted(ctx, err) {
			return contractx.HandlerResult{}, err
		}
		return failure(memory, "Error processing conversation", err), nil
	}

	memory.Append(contractx.RoleAssistant, reply)
	return contractx.HandlerResult{Reply: reply, Status: contractx.StatusConversationProcessed}, nil
}
