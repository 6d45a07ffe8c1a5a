package dispatchnode

import (
	"context"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

// Classify reads history before this turn's query is recorded. A classifier
// failure resolves to Unclassified so the confidence policy asks for
// clarification.
func Classify(ctx context.Context, in TurnState, classifier contractx.IntentClassifier) (TurnState, error) {
	result, err := classifier.Classify(ctx, in.query, in.memory.RecentHistory(0))
	if err != nil {
		if ctx.Err() != nil {
			return in, err
		}
		log.Ctx(ctx).Warn().Err(err).Msg("classification failed")
		result = contractx.Unclassified
	}

	log.Ctx(ctx).Debug().
		Str("intent", string(result.Intent)).
		Float64("confidence", result.Confidence).
		Msg("turn classified")

	in.classification = result
	return in.advance(contractx.StatusClassified)
}

// RecordQuery appends the user's query to memory.
func RecordQuery(in TurnState) (TurnState, error) {
	in.memory.Append(contractx.RoleUser, in.query)
	return in, nil
}
