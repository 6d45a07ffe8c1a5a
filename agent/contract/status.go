package contract

type TurnStatus string

const (
	StatusInitialized           TurnStatus = "initialized"
	StatusClassified            TurnStatus = "classified"
	StatusClarificationNeeded   TurnStatus = "clarification_needed"
	StatusIncomplete            TurnStatus = "incomplete"
	StatusComplete              TurnStatus = "complete"
	StatusDataProcessed         TurnStatus = "data_processed"
	StatusTransactionProcessed  TurnStatus = "transaction_processed"
	StatusConversationProcessed TurnStatus = "conversation_processed"
	StatusResponseGenerated     TurnStatus = "response_generated"
)

// turnTransitions is the dispatcher state machine. Handler outcomes
// (complete, incomplete) are reported separately and never appear here.
var turnTransitions = map[TurnStatus][]TurnStatus{
	StatusInitialized: {StatusClassified},
	StatusClassified: {
		StatusClarificationNeeded,
		StatusDataProcessed,
		StatusTransactionProcessed,
		StatusConversationProcessed,
	},
	StatusDataProcessed:         {StatusResponseGenerated},
	StatusTransactionProcessed:  {StatusResponseGenerated},
	StatusConversationProcessed: {StatusResponseGenerated},
}

func (s TurnStatus) CanAdvanceTo(next TurnStatus) bool {
	for _, allowed := range turnTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s TurnStatus) IsTerminal() bool {
	return s == StatusResponseGenerated || s == StatusClarificationNeeded
}

// IsHandlerOutcome reports whether s may be returned by an intent handler.
func (s TurnStatus) IsHandlerOutcome() bool {
	switch s {
	case StatusClassified, StatusIncomplete, StatusComplete, StatusDataProcessed, StatusConversationProcessed:
		return true
	default:
		return false
	}
}
