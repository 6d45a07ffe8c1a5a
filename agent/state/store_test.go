package state

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

func TestRegistryCreateAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry(RegistryConfig{TTL: time.Minute})
	s := r.Create()
	if s.ID == "" {
		t.Fatal("expected generated session id")
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != s {
		t.Fatal("Get() must return the same session")
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryGetErrors(t *testing.T) {
	t.Parallel()

	r := NewRegistry(RegistryConfig{})
	if _, err := r.Get("  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Get(blank) error = %v, want ErrInvalidSession", err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryGetOrCreateIsStable(t *testing.T) {
	t.Parallel()

	r := NewRegistry(RegistryConfig{})
	a, err := r.GetOrCreate("chat-1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	b, err := r.GetOrCreate("chat-1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if a != b {
		t.Fatal("GetOrCreate must return the existing session")
	}
}

func TestRegistryDelete(t *testing.T) {
	t.Parallel()

	r := NewRegistry(RegistryConfig{})
	s := r.Create()

	r.Delete(s.ID)
	if _, err := r.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() after delete error = %v", err)
	}
}

func TestRegistryGetOrCreateReplacesExpiredSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry(RegistryConfig{})
	old := r.Create()
	old.Append(contractx.RoleUser, "hello")
	r.Delete(old.ID)

	fresh, err := r.GetOrCreate(old.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if fresh == old || fresh.ID != old.ID {
		t.Fatalf("want a new session under id %s, got %p id %s", old.ID, fresh, fresh.ID)
	}
	if fresh.Len() != 0 {
		t.Fatalf("fresh session has %d messages", fresh.Len())
	}
}
