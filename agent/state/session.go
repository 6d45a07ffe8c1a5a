package state

import (
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

// DefaultHistoryWindow is the number of messages rendered into prompts.
const DefaultHistoryWindow = 10

// Session is the conversational memory of one chat session: an append-only
// message log plus a last-write-wins entity map. Only Reset clears them.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	messages []contractx.Message
	entities map[string]any

	// turnMu serializes turns; see LockTurn.
	turnMu sync.Mutex
}

var _ contractx.Memory = (*Session)(nil)

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now.UTC(),
		entities:  make(map[string]any, 8),
	}
}

func (s *Session) Append(role contractx.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, contractx.Message{Role: role, Content: content})
}

// RecentHistory renders the last n messages oldest-first as "role: content"
// lines. n <= 0 means DefaultHistoryWindow.
func (s *Session) RecentHistory(n int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return renderHistory(s.messages, nil, n)
}

func (s *Session) SetEntity(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entities == nil {
		s.entities = make(map[string]any, 8)
	}
	s.entities[key] = value
}

func (s *Session) Entity(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entities[key]
	return v, ok
}

// Reset clears messages and entities together.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.entities = make(map[string]any, 8)
}

// Messages returns a copy of the message log.
func (s *Session) Messages() []contractx.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contractx.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Entities returns a copy of the entity map.
func (s *Session) Entities() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.entities))
	for k, v := range s.entities {
		out[k] = v
	}
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// LockTurn blocks until no other turn runs on this session and returns the
// release func.
func (s *Session) LockTurn() func() {
	s.turnMu.Lock()
	return s.turnMu.Unlock
}

// Stage opens a write buffer over the session for one turn.
func (s *Session) Stage() *Staged {
	return &Staged{
		base:     s,
		entities: make(map[string]any, 4),
	}
}

func (s *Session) apply(messages []contractx.Message, entities map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages...)
	if s.entities == nil {
		s.entities = make(map[string]any, len(entities))
	}
	for k, v := range entities {
		s.entities[k] = v
	}
}

func renderHistory(committed, staged []contractx.Message, n int) string {
	if n <= 0 {
		n = DefaultHistoryWindow
	}

	total := len(committed) + len(staged)
	if total == 0 {
		return ""
	}
	start := 0
	if total > n {
		start = total - n
	}

	lines := make([]string, 0, total-start)
	for i := start; i < total; i++ {
		if i < len(committed) {
			lines = append(lines, committed[i].String())
		} else {
			lines = append(lines, staged[i-len(committed)].String())
		}
	}
	return strings.Join(lines, "\n")
}
