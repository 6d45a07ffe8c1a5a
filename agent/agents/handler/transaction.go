package handler

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

const (
	// PendingTransactionKey marks the transaction type still waiting for slots.
	PendingTransactionKey = "pending_transaction_type"
	// PendingSlotsKey lists the slots the user supplied for the pending transaction.
	PendingSlotsKey = "pending_transaction_slots"
)

type TransactionHandler struct {
	extractor contractx.Extractor
	executor  contractx.TransactionExecutor
	generator contractx.TextGenerator
	narrator  string
	clarifier string
}

var _ contractx.Handler = (*TransactionHandler)(nil)

func NewTransactionHandler(
	extractor contractx.Extractor,
	executor contractx.TransactionExecutor,
	generator contractx.TextGenerator,
	narratorPrompt string,
	clarifierPrompt string,
) *TransactionHandler {
	return &TransactionHandler{
		extractor: extractor,
		executor:  executor,
		generator: generator,
		narrator:  narratorPrompt,
		clarifier: clarifierPrompt,
	}
}

func (h *TransactionHandler) Handle(ctx context.Context, query string, memory contractx.Memory) (contractx.HandlerResult, error) {
	draft, err := h.extractor.Extract(ctx, query, memory.RecentHistory(0))
	if err != nil {
		if aborted(ctx, err) {
			return contractx.HandlerResult{}, err
		}
		log.Ctx(ctx).Warn().Err(err).Msg("transaction extraction failed")
		return failure(memory, "Error processing transaction", err), nil
	}

	// Entities are recorded before the completeness check, whatever the outcome.
	for key, value := range draft.Parameters {
		memory.SetEntity(key, value)
	}
	draft = fillFromEntities(draft, memory)

	if !draft.IsComplete() {
		if !draft.IsUnknown() {
			memory.SetEntity(PendingTransactionKey, draft.Type)
			memory.SetEntity(PendingSlotsKey, collectedSlots(draft))
		}
		return h.askForMissing(ctx, draft, memory)
	}

	var result contractx.ExecutionResult
	if draft.IsUnknown() {
		result = contractx.ErrorResult("Unknown transaction type")
	} else {
		result, err = execute(ctx, h.executor, draft)
		if err != nil {
			return contractx.HandlerResult{}, err
		}
		memory.SetEntity(PendingTransactionKey, "")
		memory.SetEntity(PendingSlotsKey, []string{})
	}
	log.Ctx(ctx).Debug().Str("transaction_type", draft.Type).Msg("transaction executed")

	reply, err := h.generator.Generate(ctx, contractx.GenerationRequest{
		System: h.narrator,
		Prompt: fmt.Sprintf(
			"The user asked: %q\n\nGenerate a natural language response explaining the transaction result. "+
				"Never reveal private keys or any other sensitive data. "+
				"Display the transaction hash if the transaction was successful.\n\n%s\n\n"+
				"Format the response in a conversational, helpful manner.",
			query, renderResult(result),
		),
	})
	if err != nil {
		if aborted(ctx, err) {
			return contractx.HandlerResult{}, err
		}
		return failure(memory, "Error processing transaction", err), nil
	}

	memory.Append(contractx.RoleAssistant, reply)
	return contractx.HandlerResult{Reply: reply, Status: contractx.StatusComplete}, nil
}

func (h *TransactionHandler) askForMissing(ctx context.Context, draft contractx.Draft, memory contractx.Memory) (contractx.HandlerResult, error) {
	kind := draft.Type
	if draft.IsUnknown() {
		kind = "requested"
	}
	reply, err := h.generator.Generate(ctx, contractx.GenerationRequest{
		System: h.clarifier,
		Prompt: fmt.Sprintf(
			"The user wants to perform a %s transaction, but some parameters are missing.\n"+
				"Missing parameters: %s\n\n"+
				"Based on the conversation history and the current query, generate a natural language response asking for the missing parameters.\n"+
				"Keep your response conversational and helpful.\n\nConversation history:\n%s",
			kind, strings.Join(draft.MissingParameters, ", "), memory.RecentHistory(0),
		),
	})
	if err != nil {
		if aborted(ctx, err) {
			return contractx.HandlerResult{}, err
		}
		return failure(memory, "Error processing transaction", err), nil
	}

	memory.Append(contractx.RoleAssistant, reply)
	return contractx.HandlerResult{Reply: reply, Status: contractx.StatusIncomplete}, nil
}

// fillFromEntities completes a draft with values stored on earlier turns
// when those turns were collecting slots for the same transaction type.
// Only slots supplied while that transaction was pending are carried.
// Required fields that remain absent are always reported missing.
func fillFromEntities(draft contractx.Draft, memory contractx.Memory) contractx.Draft {
	out := draft.Clone()
	required := contractx.RequiredParameters[out.Type]

	var carried []string
	if pending, _ := memory.Entity(PendingTransactionKey); pending == out.Type && len(required) > 0 {
		carried = pendingSlots(memory)
	}

	for _, name := range required {
		if hasValue(out.Parameters[name]) {
			continue
		}
		if slices.Contains(carried, name) {
			if v, ok := memory.Entity(name); ok && hasValue(v) {
				out.Parameters[name] = v
				continue
			}
		}
		if !slices.Contains(out.MissingParameters, name) {
			out.MissingParameters = append(out.MissingParameters, name)
		}
	}

	missing := out.MissingParameters[:0]
	for _, name := range out.MissingParameters {
		if !hasValue(out.Parameters[name]) {
			missing = append(missing, name)
		}
	}
	out.MissingParameters = missing
	return out
}

// collectedSlots names the required slots the draft already holds.
func collectedSlots(draft contractx.Draft) []string {
	var names []string
	for _, name := range contractx.RequiredParameters[draft.Type] {
		if hasValue(draft.Parameters[name]) {
			names = append(names, name)
		}
	}
	return names
}

func pendingSlots(memory contractx.Memory) []string {
	v, ok := memory.Entity(PendingSlotsKey)
	if !ok {
		return nil
	}
	names, _ := v.([]string)
	return names
}

func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	default:
		return true
	}
}
