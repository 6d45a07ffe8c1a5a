package state

import (
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

// Staged buffers the writes of a single turn. Reads see the committed
// session followed by the buffered writes; nothing reaches the session
// until Commit.
type Staged struct {
	base     *Session
	messages []contractx.Message
	entities map[string]any
}

var _ contractx.Memory = (*Staged)(nil)

func (s *Staged) Append(role contractx.Role, content string) {
	s.messages = append(s.messages, contractx.Message{Role: role, Content: content})
}

func (s *Staged) RecentHistory(n int) string {
	s.base.mu.RLock()
	defer s.base.mu.RUnlock()
	return renderHistory(s.base.messages, s.messages, n)
}

func (s *Staged) SetEntity(key string, value any) {
	s.entities[key] = value
}

func (s *Staged) Entity(key string) (any, bool) {
	if v, ok := s.entities[key]; ok {
		return v, true
	}
	return s.base.Entity(key)
}

// Pending returns the buffered messages.
func (s *Staged) Pending() []contractx.Message {
	out := make([]contractx.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Commit applies every buffered write to the session in one step and
// empties the buffer.
func (s *Staged) Commit() {
	s.base.apply(s.messages, s.entities)
	s.messages = nil
	s.entities = make(map[string]any, 4)
}

// Discard drops the buffered writes.
func (s *Staged) Discard() {
	s.messages = nil
	s.entities = make(map[string]any, 4)
}
