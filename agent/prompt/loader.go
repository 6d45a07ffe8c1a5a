package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/data_query.txt
	dataQueryRaw string

	//go:embed template/transaction.txt
	transactionRaw string

	//go:embed template/conversation.txt
	conversationRaw string

	//go:embed template/data_narrator.txt
	dataNarratorRaw string

	//go:embed template/transaction_narrator.txt
	transactionNarratorRaw string

	//go:embed template/slot_clarifier.txt
	slotClarifierRaw string
)

// PromptSet holds the instruction text for every model call.
type PromptSet struct {
	Classifier          string
	DataQuery           string
	Transaction         string
	Conversation        string
	DataNarrator        string
	TransactionNarrator string
	SlotClarifier       string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:          strings.TrimSpace(classifierRaw),
		DataQuery:           strings.TrimSpace(dataQueryRaw),
		Transaction:         strings.TrimSpace(transactionRaw),
		Conversation:        strings.TrimSpace(conversationRaw),
		DataNarrator:        strings.TrimSpace(dataNarratorRaw),
		TransactionNarrator: strings.TrimSpace(transactionNarratorRaw),
		SlotClarifier:       strings.TrimSpace(slotClarifierRaw),
	}
}

func (p PromptSet) Validate() error {
	fields := map[string]string{
		"classifier":           p.Classifier,
		"data_query":           p.DataQuery,
		"transaction":          p.Transaction,
		"conversation":         p.Conversation,
		"data_narrator":        p.DataNarrator,
		"transaction_narrator": p.TransactionNarrator,
		"slot_clarifier":       p.SlotClarifier,
	}
	for name, text := range fields {
		if text == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
