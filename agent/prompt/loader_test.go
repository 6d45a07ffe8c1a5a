package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

func TestLoadPromptSetComplete(t *testing.T) {
	t.Parallel()

	p := LoadPromptSet()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.Contains(p.TransactionNarrator, "private keys") {
		t.Fatal("transaction narrator must forbid revealing private keys")
	}
	if strings.Contains(p.Classifier, "{{") || strings.Contains(p.DataQuery, "{{") || strings.Contains(p.Transaction, "{{") {
		t.Fatal("structured prompts are rendered as Go templates and must not contain actions")
	}
}

func TestPromptSetValidateMissing(t *testing.T) {
	t.Parallel()

	p := LoadPromptSet()
	p.SlotClarifier = ""
	if err := p.Validate(); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("Validate() error = %v, want ErrPromptMissing", err)
	}
}
