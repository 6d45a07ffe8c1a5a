package dispatchnode

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
	statex "github.com/tanpawarit/blockagent/agent/state"
)

type fakeClassifier struct {
	result     contractx.Classification
	err        error
	gotHistory string
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, history string) (contractx.Classification, error) {
	f.gotHistory = history
	return f.result, f.err
}

type fakeHandler struct {
	res contractx.HandlerResult
	err error
}

func (f *fakeHandler) Handle(_ context.Context, _ string, memory contractx.Memory) (contractx.HandlerResult, error) {
	if f.err != nil {
		return contractx.HandlerResult{}, f.err
	}
	memory.Append(contractx.RoleAssistant, f.res.Reply)
	return f.res, nil
}

func newState(t *testing.T, query string) (TurnState, *statex.Session) {
	t.Helper()

	session := statex.NewSession("s-1", time.Unix(0, 0))
	st, err := ValidateRequest(GraphInput{Query: query, Memory: session})
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	return st, session
}

func TestValidateRequestRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	if _, err := ValidateRequest(GraphInput{Query: "  ", Memory: statex.NewSession("s", time.Now())}); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("ValidateRequest() error = %v, want ErrInvalidMessage", err)
	}
	if _, err := ValidateRequest(GraphInput{Query: "hi"}); !errors.Is(err, ErrNilMemory) {
		t.Fatalf("ValidateRequest() error = %v, want ErrNilMemory", err)
	}
}

func TestClassifyReadsHistoryBeforeQueryIsRecorded(t *testing.T) {
	t.Parallel()

	st, session := newState(t, "hello")
	session.Append(contractx.RoleAssistant, "earlier reply")
	classifier := &fakeClassifier{result: contractx.Classification{Intent: contractx.IntentConversation, Confidence: 0.9}}

	out, err := Classify(context.Background(), st, classifier)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if classifier.gotHistory != "assistant: earlier reply" {
		t.Fatalf("history = %q", classifier.gotHistory)
	}
	if out.Status() != contractx.StatusClassified {
		t.Fatalf("status = %s, want classified", out.Status())
	}
	if st.Status() != contractx.StatusInitialized {
		t.Fatal("input state must not change")
	}

	if _, err := RecordQuery(out); err != nil {
		t.Fatalf("RecordQuery() error = %v", err)
	}
	if session.RecentHistory(1) != "user: hello" {
		t.Fatalf("history = %q", session.RecentHistory(1))
	}
}

func TestClassifyFailureBecomesUnknown(t *testing.T) {
	t.Parallel()

	st, _ := newState(t, "???")
	out, err := Classify(context.Background(), st, &fakeClassifier{
		result: contractx.Classification{Intent: contractx.IntentTransaction, Confidence: 0.99},
		err:    contractx.ErrClassification,
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if out.Classification() != contractx.Unclassified {
		t.Fatalf("classification = %#v, want Unclassified", out.Classification())
	}

	node, err := SelectNode(context.Background(), out)
	if err != nil || node != NodeClarify {
		t.Fatalf("SelectNode() = %q, %v; want clarify", node, err)
	}
}

func TestSelectNodeFollowsTableAboveThreshold(t *testing.T) {
	t.Parallel()

	cases := map[contractx.Intent]string{
		contractx.IntentDataRetrieval: NodeDataQuery,
		contractx.IntentTransaction:   NodeTransaction,
		contractx.IntentConversation:  NodeConversation,
	}
	for intent, want := range cases {
		for _, confidence := range []float64{0.7, 0.95, 1} {
			st := TurnState{classification: contractx.Classification{Intent: intent, Confidence: confidence}}
			got, err := SelectNode(context.Background(), st)
			if err != nil {
				t.Fatalf("SelectNode(%s, %v) error = %v", intent, confidence, err)
			}
			if got != want {
				t.Fatalf("SelectNode(%s, %v) = %q, want %q", intent, confidence, got, want)
			}
		}
		st := TurnState{classification: contractx.Classification{Intent: intent, Confidence: 0.69}}
		if got, _ := SelectNode(context.Background(), st); got != NodeClarify {
			t.Fatalf("SelectNode(%s, 0.69) = %q, want clarify", intent, got)
		}
	}
}

func TestSelectNodeUnknownIntentIsRoutingError(t *testing.T) {
	t.Parallel()

	st := TurnState{classification: contractx.Classification{Intent: contractx.IntentUnknown, Confidence: 0.9}}
	if _, err := SelectNode(context.Background(), st); !errors.Is(err, contractx.ErrRouting) {
		t.Fatalf("SelectNode() error = %v, want ErrRouting", err)
	}
}

func TestClarifyAppendsFixedMessage(t *testing.T) {
	t.Parallel()

	st, session := newState(t, "hmm")
	st, _ = Classify(context.Background(), st, &fakeClassifier{result: contractx.Classification{Intent: contractx.IntentTransaction, Confidence: 0.5}})

	out, err := Clarify(st)
	if err != nil {
		t.Fatalf("Clarify() error = %v", err)
	}
	if out.Reply() != ClarificationMessage || out.Status() != contractx.StatusClarificationNeeded {
		t.Fatalf("unexpected state: reply=%q status=%s", out.Reply(), out.Status())
	}
	if session.RecentHistory(1) != "assistant: "+ClarificationMessage {
		t.Fatalf("history = %q", session.RecentHistory(1))
	}

	res, err := FinalizeReply(out)
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if res.Status != contractx.StatusClarificationNeeded {
		t.Fatalf("status = %s, want clarification_needed", res.Status)
	}
}

func TestDispatchHandlerAndFinalize(t *testing.T) {
	t.Parallel()

	st, _ := newState(t, "swap")
	st, _ = Classify(context.Background(), st, &fakeClassifier{result: contractx.Classification{Intent: contractx.IntentTransaction, Confidence: 0.9}})

	out, err := DispatchHandler(context.Background(), st, contractx.IntentTransaction, &fakeHandler{
		res: contractx.HandlerResult{Reply: "How much?", Status: contractx.StatusIncomplete},
	})
	if err != nil {
		t.Fatalf("DispatchHandler() error = %v", err)
	}
	if out.Status() != contractx.StatusTransactionProcessed || out.Outcome() != contractx.StatusIncomplete {
		t.Fatalf("status = %s outcome = %s", out.Status(), out.Outcome())
	}
	if out.Route() != contractx.AgentTypeTransaction {
		t.Fatalf("route = %s", out.Route())
	}

	res, err := FinalizeReply(out)
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	want := contractx.TurnResult{Reply: "How much?", Status: contractx.StatusResponseGenerated, Outcome: contractx.StatusIncomplete}
	if res != want {
		t.Fatalf("FinalizeReply() = %#v, want %#v", res, want)
	}
}

func TestDispatchHandlerRejectsForeignStatus(t *testing.T) {
	t.Parallel()

	st, _ := newState(t, "hi")
	st, _ = Classify(context.Background(), st, &fakeClassifier{result: contractx.Classification{Intent: contractx.IntentConversation, Confidence: 0.9}})

	_, err := DispatchHandler(context.Background(), st, contractx.IntentConversation, &fakeHandler{
		res: contractx.HandlerResult{Reply: "x", Status: contractx.StatusResponseGenerated},
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("DispatchHandler() error = %v, want ErrSchemaViolation", err)
	}
}

func TestFinalizeRejectsUnprocessedTurn(t *testing.T) {
	t.Parallel()

	st, _ := newState(t, "hi")
	if _, err := FinalizeReply(st); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("FinalizeReply() error = %v, want ErrValidation", err)
	}
}
