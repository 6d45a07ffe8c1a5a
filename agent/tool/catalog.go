package tool

import (
	"context"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

// Func runs one typed request against an external backend.
type Func func(ctx context.Context, params map[string]any) (contractx.ExecutionResult, error)

// Catalog dispatches a draft type to its Func. Unregistered types yield the
// fallback error payload.
type Catalog struct {
	funcs    map[string]Func
	fallback string
}

func NewCatalog(fallback string, funcs map[string]Func) *Catalog {
	copied := make(map[string]Func, len(funcs))
	for name, fn := range funcs {
		copied[name] = fn
	}
	return &Catalog{funcs: copied, fallback: fallback}
}

func (c *Catalog) Execute(ctx context.Context, kind string, params map[string]any) (contractx.ExecutionResult, error) {
	fn, ok := c.funcs[kind]
	if !ok {
		return contractx.ErrorResult(c.fallback), nil
	}
	if params == nil {
		params = map[string]any{}
	}
	return fn(ctx, params)
}

// NewDataQueryCatalog exposes the subgraph lookups by query type.
func NewDataQueryCatalog(s *SubgraphExecutor) *Catalog {
	return NewCatalog("Unknown query type", map[string]Func{
		contractx.QueryPoolLiquidity: s.PoolLiquidity,
		contractx.QueryRecentSwaps:   s.RecentSwaps,
	})
}

// NewTransactionCatalog exposes the simulated chain operations by transaction type.
func NewTransactionCatalog(c *ChainExecutor) *Catalog {
	return NewCatalog("Unknown transaction type", map[string]Func{
		contractx.TxTokenBalance: c.TokenBalance,
		contractx.TxTokenSwap:    c.TokenSwap,
	})
}
