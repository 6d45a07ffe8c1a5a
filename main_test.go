package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
	statex "github.com/tanpawarit/blockagent/agent/state"
)

type fakeTurns struct {
	queries []string
	resets  int
	err     error
}

func (f *fakeTurns) Process(_ context.Context, query string, session *statex.Session) (contractx.TurnResult, *statex.Session, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return contractx.TurnResult{}, session, f.err
	}
	session.Append(contractx.RoleUser, query)
	return contractx.TurnResult{Reply: "echo " + query, Status: contractx.StatusResponseGenerated}, session, nil
}

func (f *fakeTurns) ResetSession(session *statex.Session) {
	f.resets++
	session.Reset()
}

func TestChatLoopCommands(t *testing.T) {
	t.Parallel()

	turns := &fakeTurns{}
	chat := &chatLoop{turns: turns, sessions: statex.NewRegistry(statex.RegistryConfig{})}
	var out bytes.Buffer

	in := strings.NewReader("hello\n\n/reset\nbalance\n/quit\nignored\n")
	if err := chat.run(context.Background(), in, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if len(turns.queries) != 2 || turns.queries[0] != "hello" || turns.queries[1] != "balance" {
		t.Fatalf("queries = %#v", turns.queries)
	}
	if turns.resets != 1 {
		t.Fatalf("resets = %d, want 1", turns.resets)
	}
	if !strings.Contains(out.String(), "agent> echo hello") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestChatLoopPrintsErrors(t *testing.T) {
	t.Parallel()

	turns := &fakeTurns{err: errors.New("routing failed")}
	chat := &chatLoop{turns: turns, sessions: statex.NewRegistry(statex.RegistryConfig{})}
	var out bytes.Buffer

	if err := chat.run(context.Background(), strings.NewReader("hi\n"), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Error: routing failed") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestChatLoopNewSession(t *testing.T) {
	t.Parallel()

	sessions := statex.NewRegistry(statex.RegistryConfig{})
	chat := &chatLoop{turns: &fakeTurns{}, sessions: sessions}
	var out bytes.Buffer

	if err := chat.run(context.Background(), strings.NewReader("hi\n/new\nhi again\n"), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if sessions.Count() != 1 {
		t.Fatalf("live sessions = %d, want 1", sessions.Count())
	}
	if !strings.Contains(out.String(), "Started session") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestChatLoopRecreatesExpiredSession(t *testing.T) {
	t.Parallel()

	sessions := statex.NewRegistry(statex.RegistryConfig{})
	turns := &expiringTurns{sessions: sessions}
	chat := &chatLoop{turns: turns, sessions: sessions}
	var out bytes.Buffer

	if err := chat.run(context.Background(), strings.NewReader("first\nsecond\n"), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(turns.seen) != 2 || turns.seen[0] == turns.seen[1] {
		t.Fatalf("second turn should run on a fresh session, seen = %#v", turns.seen)
	}
	if !strings.Contains(out.String(), "expired, memory cleared") {
		t.Fatalf("output = %q", out.String())
	}
}

// expiringTurns drops the session from the registry after each turn.
type expiringTurns struct {
	sessions *statex.Registry
	seen     []*statex.Session
}

func (e *expiringTurns) Process(_ context.Context, query string, session *statex.Session) (contractx.TurnResult, *statex.Session, error) {
	e.seen = append(e.seen, session)
	e.sessions.Delete(session.ID)
	return contractx.TurnResult{Reply: query}, session, nil
}

func (e *expiringTurns) ResetSession(*statex.Session) {}
