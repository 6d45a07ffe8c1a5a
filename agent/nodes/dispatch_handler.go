package dispatchnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

// DispatchHandler runs the handler chosen for intent and records its reply
// and outcome.
func DispatchHandler(ctx context.Context, in TurnState, intent contractx.Intent, handler contractx.Handler) (TurnState, error) {
	r, err := RouteFor(intent)
	if err != nil {
		return in, err
	}
	if handler == nil {
		return in, fmt.Errorf("%w: handler %s is not configured", contractx.ErrRouting, r.Handler)
	}

	res, err := handler.Handle(ctx, in.query, in.memory)
	if err != nil {
		return in, err
	}
	if !res.Status.IsHandlerOutcome() {
		return in, fmt.Errorf("%w: handler %s reported status %q", contractx.ErrSchemaViolation, r.Handler, res.Status)
	}

	log.Ctx(ctx).Debug().
		Str("handler", string(r.Handler)).
		Str("outcome", string(res.Status)).
		Msg("handler finished")

	out, err := in.advance(r.Status)
	if err != nil {
		return in, err
	}
	out.route = r.Handler
	out.outcome = res.Status
	out.reply = res.Reply
	return out, nil
}

// FinalizeReply closes the turn. It has no side effects.
func FinalizeReply(in TurnState) (contractx.TurnResult, error) {
	if in.status == contractx.StatusClarificationNeeded {
		return contractx.TurnResult{Reply: in.reply, Status: in.status, Outcome: in.outcome}, nil
	}
	out, err := in.advance(contractx.StatusResponseGenerated)
	if err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.TurnResult{Reply: out.reply, Status: out.status, Outcome: out.outcome}, nil
}
