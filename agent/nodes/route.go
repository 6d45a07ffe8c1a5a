package dispatchnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

const (
	NodeClarify      = "clarify"
	NodeDataQuery    = "handle_data_query"
	NodeTransaction  = "handle_transaction"
	NodeConversation = "handle_conversation"
)

// ClarificationMessage is sent when a turn is classified below the
// confidence threshold.
const ClarificationMessage = "I didn't quite understand. Could you please clarify what you want to do? I can:\n\n" +
	"1. Retrieve on-chain data (like token prices, liquidity, or recent transactions)\n" +
	"2. Perform a transaction (like swapping tokens or checking balances)\n\n" +
	"Please provide more details so I can help you better."

type Route struct {
	Node    string
	Handler contractx.AgentType
	Status  contractx.TurnStatus
}

var routes = map[contractx.Intent]Route{
	contractx.IntentDataRetrieval: {Node: NodeDataQuery, Handler: contractx.AgentTypeDataQuery, Status: contractx.StatusDataProcessed},
	contractx.IntentTransaction:   {Node: NodeTransaction, Handler: contractx.AgentTypeTransaction, Status: contractx.StatusTransactionProcessed},
	contractx.IntentConversation:  {Node: NodeConversation, Handler: contractx.AgentTypeConversation, Status: contractx.StatusConversationProcessed},
}

// RouteFor is an exact-match lookup; intents outside the table are a
// routing error.
func RouteFor(intent contractx.Intent) (Route, error) {
	r, ok := routes[intent]
	if !ok {
		return Route{}, fmt.Errorf("%w: no handler for intent=%q", contractx.ErrRouting, intent)
	}
	return r, nil
}

// RouteNodes lists every node the routing branch may select.
func RouteNodes() map[string]bool {
	out := map[string]bool{NodeClarify: true}
	for _, r := range routes {
		out[r.Node] = true
	}
	return out
}

// SelectNode applies the confidence policy and then the routing table.
func SelectNode(ctx context.Context, in TurnState) (string, error) {
	if in.classification.Confidence < contractx.ConfidenceThreshold {
		return NodeClarify, nil
	}
	r, err := RouteFor(in.classification.Intent)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Float64("confidence", in.classification.Confidence).Msg("routing failed")
		return "", err
	}
	return r.Node, nil
}

func Clarify(in TurnState) (TurnState, error) {
	out, err := in.advance(contractx.StatusClarificationNeeded)
	if err != nil {
		return in, err
	}
	out.memory.Append(contractx.RoleAssistant, ClarificationMessage)
	out.reply = ClarificationMessage
	out.outcome = contractx.StatusClarificationNeeded
	return out, nil
}
