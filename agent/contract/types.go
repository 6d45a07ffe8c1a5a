package contract

import (
	"fmt"
	"slices"
	"strings"
)

type AgentType string

const (
	AgentTypeClassifier   AgentType = "classifier"
	AgentTypeDataQuery    AgentType = "data_query"
	AgentTypeTransaction  AgentType = "transaction"
	AgentTypeConversation AgentType = "conversation"
	AgentTypeGenerator    AgentType = "generator"
)

type Intent string

const (
	IntentDataRetrieval Intent = "data_retrieval"
	IntentTransaction   Intent = "transaction"
	IntentConversation  Intent = "conversation"
	IntentUnknown       Intent = "unknown"
)

// ParseIntent maps a classifier label onto the intent taxonomy.
func ParseIntent(label string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(label))) {
	case IntentDataRetrieval, "subgraph_query", "subgraph query":
		return IntentDataRetrieval, true
	case IntentTransaction:
		return IntentTransaction, true
	case IntentConversation:
		return IntentConversation, true
	case IntentUnknown:
		return IntentUnknown, true
	default:
		return IntentUnknown, false
	}
}

// ConfidenceThreshold is the minimum confidence required to route a turn.
const ConfidenceThreshold = 0.7

type Classification struct {
	Intent     Intent  `json:"query_type"`
	Confidence float64 `json:"confidence"`
}

// Unclassified is the result used whenever classification fails.
var Unclassified = Classification{Intent: IntentUnknown, Confidence: 0}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}

const (
	DraftUnknown = "unknown"

	QueryPoolLiquidity = "pool_liquidity"
	QueryRecentSwaps   = "recent_swaps"

	TxTokenSwap    = "token_swap"
	TxTokenBalance = "token_balance"
)

// RequiredParameters lists the slots a transaction needs before it may execute.
var RequiredParameters = map[string][]string{
	TxTokenSwap:    {"token_in", "token_out", "amount_in"},
	TxTokenBalance: {"token_symbol"},
}

// Draft is the structured output of parameter extraction for one turn.
type Draft struct {
	Type              string         `json:"type"`
	Parameters        map[string]any `json:"parameters"`
	MissingParameters []string       `json:"missing_parameters,omitempty"`
}

func (d Draft) IsUnknown() bool {
	return d.Type == "" || d.Type == DraftUnknown
}

func (d Draft) IsComplete() bool {
	return len(d.MissingParameters) == 0
}

// Clone returns a copy whose maps and slices are not shared with d.
func (d Draft) Clone() Draft {
	out := Draft{
		Type:              d.Type,
		Parameters:        make(map[string]any, len(d.Parameters)),
		MissingParameters: slices.Clone(d.MissingParameters),
	}
	for k, v := range d.Parameters {
		out.Parameters[k] = v
	}
	return out
}

// ExecutionResult is the payload an executor hands back for narration.
// A failed execution carries an "error" key.
type ExecutionResult map[string]any

func ErrorResult(msg string) ExecutionResult {
	return ExecutionResult{"error": msg}
}

func (r ExecutionResult) ErrorMessage() (string, bool) {
	v, ok := r["error"]
	if !ok {
		return "", false
	}
	msg, _ := v.(string)
	return msg, true
}

type HandlerResult struct {
	Reply  string
	Status TurnStatus
}

type GenerationRequest struct {
	System string
	Prompt string
}

type TurnResult struct {
	Reply   string     `json:"reply"`
	Status  TurnStatus `json:"status"`
	Outcome TurnStatus `json:"outcome"`
}
