package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

const (
	defaultSwapLimit     = 5
	maxSwapLimit         = 1000
	maxResponseSizeBytes = 2 << 20
)

const poolLiquidityQuery = `query GetPoolData($token0: String!, $token1: String!) {
  pools(
    where: {token0_: {symbol_contains_nocase: $token0}, token1_: {symbol_contains_nocase: $token1}}
    orderBy: totalValueLockedUSD
    orderDirection: desc
    first: 1
  ) {
    id
    token0 { id symbol decimals }
    token1 { id symbol decimals }
    totalValueLockedToken0
    totalValueLockedToken1
    totalValueLockedUSD
    volumeUSD
    feeTier
  }
}`

const recentSwapsQuery = `query GetRecentSwaps($symbol: String!, $limit: Int!) {
  swaps(
    where: {or: [{token0_: {symbol_contains_nocase: $symbol}}, {token1_: {symbol_contains_nocase: $symbol}}]}
    orderBy: timestamp
    orderDirection: desc
    first: $limit
  ) {
    id
    timestamp
    amount0
    amount1
    amountUSD
    token0 { symbol }
    token1 { symbol }
  }
}`

type SubgraphConfig struct {
	URL     string        `envconfig:"URL" default:"https://gateway.thegraph.com/api/subgraphs/id/5zvR82QoaXYFyDEKLZ9t6v9adgnptxYpKpSbxtgVENFV"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"20s"`
}

func (c SubgraphConfig) Validate() error {
	if _, err := url.ParseRequestURI(strings.TrimSpace(c.URL)); err != nil {
		return fmt.Errorf("%w: invalid subgraph url: %v", contractx.ErrValidation, err)
	}
	return nil
}

// SubgraphOption customizes SubgraphExecutor.
type SubgraphOption func(*SubgraphExecutor)

func WithHTTPClient(client *http.Client) SubgraphOption {
	return func(s *SubgraphExecutor) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// SubgraphExecutor answers data queries from a Uniswap v3 subgraph over GraphQL.
type SubgraphExecutor struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func NewSubgraphExecutor(cfg SubgraphConfig, opts ...SubgraphOption) (*SubgraphExecutor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	s := &SubgraphExecutor{
		endpoint:   strings.TrimSpace(cfg.URL),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// PoolLiquidity returns the deepest pool pairing token0 with token1.
func (s *SubgraphExecutor) PoolLiquidity(ctx context.Context, params map[string]any) (contractx.ExecutionResult, error) {
	token0, ok0 := stringParam(params, "token0")
	token1, ok1 := stringParam(params, "token1")
	if !ok0 || !ok1 {
		return contractx.ErrorResult("pool_liquidity requires token0 and token1"), nil
	}
	return s.run(ctx, poolLiquidityQuery, map[string]any{"token0": token0, "token1": token1})
}

// RecentSwaps returns the latest swaps where either side matches token.
func (s *SubgraphExecutor) RecentSwaps(ctx context.Context, params map[string]any) (contractx.ExecutionResult, error) {
	symbol, ok := stringParam(params, "token")
	if !ok {
		symbol, ok = stringParam(params, "token_symbol")
	}
	if !ok {
		return contractx.ErrorResult("recent_swaps requires token"), nil
	}

	limit := defaultSwapLimit
	if _, present := params["limit"]; present {
		n, err := numberParam(params, "limit")
		if err != nil || n < 1 || n != math.Trunc(n) {
			return contractx.ErrorResult("recent_swaps limit must be a positive whole number"), nil
		}
		// the subgraph caps `first` at 1000
		limit = int(min(n, maxSwapLimit))
	}
	return s.run(ctx, recentSwapsQuery, map[string]any{"symbol": symbol, "limit": limit})
}

// run converts every backend failure except context errors into an error payload.
func (s *SubgraphExecutor) run(ctx context.Context, query string, vars map[string]any) (contractx.ExecutionResult, error) {
	data, err := s.exec(ctx, query, vars)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Ctx(ctx).Warn().Err(err).Msg("subgraph query failed")
		return contractx.ErrorResult(err.Error()), nil
	}
	return contractx.ExecutionResult(data), nil
}

func (s *SubgraphExecutor) exec(ctx context.Context, query string, vars map[string]any) (map[string]any, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute graphql request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read graphql response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("subgraph http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, errors.New(strings.Join(msgs, "; "))
	}
	if parsed.Data == nil {
		return nil, errors.New("graphql response has no data")
	}
	return parsed.Data, nil
}
