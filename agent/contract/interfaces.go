package contract

import "context"

type IntentClassifier interface {
	Classify(ctx context.Context, query string, history string) (Classification, error)
}

type Extractor interface {
	Extract(ctx context.Context, query string, history string) (Draft, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

type DataQueryExecutor interface {
	Execute(ctx context.Context, queryType string, params map[string]any) (ExecutionResult, error)
}

type TransactionExecutor interface {
	Execute(ctx context.Context, txType string, params map[string]any) (ExecutionResult, error)
}

// Memory is the per-session conversation log plus entity store.
type Memory interface {
	Append(role Role, content string)
	RecentHistory(n int) string
	SetEntity(key string, value any)
	Entity(key string) (any, bool)
}

type Handler interface {
	Handle(ctx context.Context, query string, memory Memory) (HandlerResult, error)
}

type Registry interface {
	Classifier() IntentClassifier
	DataQueryExtractor() Extractor
	TransactionExtractor() Extractor
}
