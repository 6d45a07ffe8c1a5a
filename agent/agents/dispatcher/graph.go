package dispatcher

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
	nodex "github.com/tanpawarit/blockagent/agent/nodes"
)

func (d *Dispatcher) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, contractx.TurnResult], error) {
	graph := compose.NewGraph[nodex.GraphInput, contractx.TurnResult]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (nodex.TurnState, error) {
			return nodex.ValidateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("classify",
		compose.InvokableLambda(func(ctx context.Context, in nodex.TurnState) (nodex.TurnState, error) {
			return nodex.Classify(ctx, in, d.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify: %w", err)
	}

	if err := graph.AddLambdaNode("record_query",
		compose.InvokableLambda(func(ctx context.Context, in nodex.TurnState) (nodex.TurnState, error) {
			return nodex.RecordQuery(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node record_query: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.NodeClarify,
		compose.InvokableLambda(func(ctx context.Context, in nodex.TurnState) (nodex.TurnState, error) {
			return nodex.Clarify(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeClarify, err)
	}

	handlerNodes := []struct {
		name   string
		intent contractx.Intent
	}{
		{nodex.NodeDataQuery, contractx.IntentDataRetrieval},
		{nodex.NodeTransaction, contractx.IntentTransaction},
		{nodex.NodeConversation, contractx.IntentConversation},
	}
	for _, hn := range handlerNodes {
		intent := hn.intent
		handler := d.handlers[intent]
		if err := graph.AddLambdaNode(hn.name,
			compose.InvokableLambda(func(ctx context.Context, in nodex.TurnState) (nodex.TurnState, error) {
				return nodex.DispatchHandler(ctx, in, intent, handler)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", hn.name, err)
		}
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in nodex.TurnState) (contractx.TurnResult, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(nodex.SelectNode, nodex.RouteNodes())
	if err := graph.AddBranch("record_query", branch); err != nil {
		return nil, fmt.Errorf("add routing branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "classify"},
		{"classify", "record_query"},
		{nodex.NodeClarify, "finalize_reply"},
		{nodex.NodeDataQuery, "finalize_reply"},
		{nodex.NodeTransaction, "finalize_reply"},
		{nodex.NodeConversation, "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("dispatcher.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile dispatcher graph: %w", err)
	}
	return runner, nil
}
