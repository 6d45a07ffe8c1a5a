package state

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("session id is empty")
)

type RegistryConfig struct {
	TTL             time.Duration `split_words:"true" default:"2h"`
	CleanupInterval time.Duration `split_words:"true" default:"10m"`
}

// Registry keeps live sessions in process memory and forgets sessions that
// stay idle longer than the TTL. Sessions never outlive the process.
type Registry struct {
	sessions *gocache.Cache
	now      func() time.Time
}

func NewRegistry(cfg RegistryConfig) *Registry {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &Registry{
		sessions: gocache.New(ttl, cleanup),
		now:      time.Now,
	}
}

// Create starts a new session under a random id.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.now())
	r.sessions.Set(s.ID, s, gocache.DefaultExpiration)
	return s
}

// Get returns the session and refreshes its idle timer.
func (r *Registry) Get(sessionID string) (*Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*Session)
	r.sessions.Set(id, s, gocache.DefaultExpiration)
	return s, nil
}

// GetOrCreate returns the live session for the id, starting an empty one
// under the same id when it has expired.
func (r *Registry) GetOrCreate(sessionID string) (*Session, error) {
	s, err := r.Get(sessionID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	s = NewSession(strings.TrimSpace(sessionID), r.now())
	if err := r.sessions.Add(s.ID, s, gocache.DefaultExpiration); err != nil {
		// lost a race with another creator
		return r.Get(sessionID)
	}
	return s, nil
}

func (r *Registry) Delete(sessionID string) {
	r.sessions.Delete(strings.TrimSpace(sessionID))
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}
