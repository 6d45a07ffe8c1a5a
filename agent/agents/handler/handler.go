package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

// executor is the shape shared by the data-query and transaction executors.
type executor interface {
	Execute(ctx context.Context, kind string, params map[string]any) (contractx.ExecutionResult, error)
}

// aborted reports whether err should end the turn: only cancellation of the
// caller's context does. Timeouts owned by a collaborator are ordinary failures.
func aborted(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}

// execute runs the executor and folds any non-context failure into an
// error payload so it can be narrated.
func execute(ctx context.Context, exec executor, draft contractx.Draft) (contractx.ExecutionResult, error) {
	result, err := exec.Execute(ctx, draft.Type, draft.Clone().Parameters)
	if err != nil {
		if aborted(ctx, err) {
			return nil, err
		}
		log.Ctx(ctx).Warn().Err(err).Str("type", draft.Type).Msg("executor failed")
		return contractx.ErrorResult(fmt.Errorf("%w: %v", contractx.ErrExecution, err).Error()), nil
	}
	if result == nil {
		return contractx.ErrorResult("executor returned no result"), nil
	}
	return result, nil
}

func renderResult(result contractx.ExecutionResult) string {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(result))
	}
	return string(raw)
}

// failure records a handler-local error as the assistant reply. The turn
// status stays at the handler's entry state.
func failure(memory contractx.Memory, prefix string, err error) contractx.HandlerResult {
	reply := fmt.Sprintf("%s: %v", prefix, err)
	memory.Append(contractx.RoleAssistant, reply)
	return contractx.HandlerResult{Reply: reply, Status: contractx.StatusClassified}
}
