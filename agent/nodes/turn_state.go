package dispatchnode

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrNilMemory      = errors.New("session memory is nil")
)

type GraphInput struct {
	Query  string
	Memory contractx.Memory
}

// TurnState is the record threaded through one dispatcher pass. It is a
// value: every node returns a modified copy and status changes go through
// the transition table.
type TurnState struct {
	query          string
	memory         contractx.Memory
	classification contractx.Classification
	route          contractx.AgentType
	outcome        contractx.TurnStatus
	reply          string
	status         contractx.TurnStatus
}

func (s TurnState) Query() string {
	return s.query
}

func (s TurnState) Memory() contractx.Memory {
	return s.memory
}

func (s TurnState) Classification() contractx.Classification {
	return s.classification
}

func (s TurnState) Route() contractx.AgentType {
	return s.route
}

func (s TurnState) Outcome() contractx.TurnStatus {
	return s.outcome
}

func (s TurnState) Reply() string {
	return s.reply
}

func (s TurnState) Status() contractx.TurnStatus {
	return s.status
}

func (s TurnState) advance(next contractx.TurnStatus) (TurnState, error) {
	if !s.status.CanAdvanceTo(next) {
		return s, fmt.Errorf("%w: illegal turn transition %s -> %s", contractx.ErrValidation, s.status, next)
	}
	s.status = next
	return s, nil
}

func ValidateRequest(in GraphInput) (TurnState, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return TurnState{}, ErrInvalidMessage
	}
	if in.Memory == nil {
		return TurnState{}, ErrNilMemory
	}
	return TurnState{
		query:          query,
		memory:         in.Memory,
		classification: contractx.Unclassified,
		status:         contractx.StatusInitialized,
	}, nil
}
