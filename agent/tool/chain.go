package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

const (
	erc20ABIJSON = `[
  {"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`
	quoterABIJSON = `[
  {"inputs":[
    {"internalType":"address","name":"tokenIn","type":"address"},
    {"internalType":"address","name":"tokenOut","type":"address"},
    {"internalType":"uint24","name":"fee","type":"uint24"},
    {"internalType":"uint256","name":"amountIn","type":"uint256"},
    {"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
   "name":"quoteExactInputSingle",
   "outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],
   "stateMutability":"nonpayable","type":"function"}
]`

	nativeDecimals = 18
	wrappedNative  = "WETH"
)

var (
	erc20ABI  = mustParseABI(erc20ABIJSON)
	quoterABI = mustParseABI(quoterABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// ChainConfig describes the read-only EVM endpoint used for balances and quotes.
// Only the public wallet address is configured; nothing here can sign.
type ChainConfig struct {
	RPCURL        string        `envconfig:"RPC_URL" split_words:"true" required:"true"`
	WalletAddress string        `envconfig:"WALLET_ADDRESS" split_words:"true" required:"true"`
	QuoterAddress string        `envconfig:"QUOTER_ADDRESS" split_words:"true" default:"0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6"`
	FeeTier       int64         `envconfig:"FEE_TIER" split_words:"true" default:"3000"`
	TokenFile     string        `envconfig:"TOKEN_FILE" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"20s"`
}

func (c ChainConfig) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("%w: chain rpc url is required", contractx.ErrValidation)
	}
	if !common.IsHexAddress(c.WalletAddress) {
		return fmt.Errorf("%w: invalid wallet address %q", contractx.ErrValidation, c.WalletAddress)
	}
	if !common.IsHexAddress(c.QuoterAddress) {
		return fmt.Errorf("%w: invalid quoter address %q", contractx.ErrValidation, c.QuoterAddress)
	}
	if c.FeeTier <= 0 {
		return fmt.Errorf("%w: fee tier must be positive", contractx.ErrValidation)
	}
	return nil
}

// ChainReader is the read-only subset of ethclient.Client the executor needs.
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call gethcore.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainExecutor answers balance lookups and simulates swaps from quoter output.
// It never signs or broadcasts a transaction.
type ChainExecutor struct {
	reader  ChainReader
	tokens  TokenRegistry
	wallet  common.Address
	quoter  common.Address
	feeTier int64
	timeout time.Duration
	now     func() time.Time
}

func NewChainExecutor(reader ChainReader, cfg ChainConfig, tokens TokenRegistry) (*ChainExecutor, error) {
	if reader == nil {
		return nil, errors.New("chain reader is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = DefaultTokens()
	}
	return &ChainExecutor{
		reader:  reader,
		tokens:  tokens,
		wallet:  common.HexToAddress(cfg.WalletAddress),
		quoter:  common.HexToAddress(cfg.QuoterAddress),
		feeTier: cfg.FeeTier,
		timeout: cfg.Timeout,
		now:     time.Now,
	}, nil
}

// DialChainExecutor connects to cfg.RPCURL and loads the token registry.
func DialChainExecutor(ctx context.Context, cfg ChainConfig) (*ChainExecutor, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	tokens, err := LoadTokenRegistry(cfg.TokenFile)
	if err != nil {
		return nil, nil, err
	}
	client, err := ethclient.DialContext(ctx, strings.TrimSpace(cfg.RPCURL))
	if err != nil {
		return nil, nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	executor, err := NewChainExecutor(client, cfg, tokens)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return executor, client.Close, nil
}

// TokenBalance reports the configured wallet's balance of token_symbol.
func (c *ChainExecutor) TokenBalance(ctx context.Context, params map[string]any) (contractx.ExecutionResult, error) {
	symbol, ok := stringParam(params, "token_symbol")
	if !ok {
		return contractx.ErrorResult("token_balance requires token_symbol"), nil
	}
	symbol = strings.ToUpper(symbol)
	token, ok := c.tokens.Lookup(symbol)
	if !ok {
		return contractx.ErrorResult("Unknown token: " + symbol), nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	balance, err := c.balanceOf(ctx, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Ctx(ctx).Warn().Err(err).Str("symbol", symbol).Msg("balance lookup failed")
		return contractx.ErrorResult(err.Error()), nil
	}
	return contractx.ExecutionResult{
		"symbol":  symbol,
		"balance": balance,
		"address": c.wallet.Hex(),
	}, nil
}

// TokenSwap quotes amount_in of token_in for token_out and returns a simulated receipt.
func (c *ChainExecutor) TokenSwap(ctx context.Context, params map[string]any) (contractx.ExecutionResult, error) {
	inSymbol, okIn := stringParam(params, "token_in")
	outSymbol, okOut := stringParam(params, "token_out")
	if !okIn || !okOut {
		return contractx.ErrorResult("token_swap requires token_in and token_out"), nil
	}
	inSymbol, outSymbol = strings.ToUpper(inSymbol), strings.ToUpper(outSymbol)

	amountIn, err := numberParam(params, "amount_in")
	if err != nil {
		return contractx.ErrorResult(err.Error()), nil
	}
	if math.IsNaN(amountIn) || math.IsInf(amountIn, 0) {
		return contractx.ErrorResult("amount_in must be a finite number"), nil
	}
	if amountIn <= 0 {
		return contractx.ErrorResult("amount_in must be greater than zero"), nil
	}

	tokenIn, ok := c.tokens.Lookup(inSymbol)
	if !ok {
		return contractx.ErrorResult("Unknown token: " + inSymbol), nil
	}
	tokenOut, ok := c.tokens.Lookup(outSymbol)
	if !ok {
		return contractx.ErrorResult("Unknown token: " + outSymbol), nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	amountOut, err := c.quote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Ctx(ctx).Warn().Err(err).Str("token_in", inSymbol).Str("token_out", outSymbol).Msg("swap quote failed")
		return contractx.ExecutionResult{
			"success":   false,
			"error":     err.Error(),
			"token_in":  inSymbol,
			"token_out": outSymbol,
			"amount_in": amountIn,
		}, nil
	}

	receipt := fmt.Sprintf("simulated_swap_between_%s_and_%s_for_%v_at_%d", inSymbol, outSymbol, amountIn, c.now().UnixNano())
	return contractx.ExecutionResult{
		"success":          true,
		"transaction_hash": crypto.Keccak256Hash([]byte(receipt)).Hex(),
		"token_in":         inSymbol,
		"token_out":        outSymbol,
		"amount_in":        amountIn,
		"amount_out":       amountOut,
		"price_per_token":  amountOut / amountIn,
		"fee_tier":         float64(c.feeTier) / 10000,
		"status":           "simulated",
	}, nil
}

func (c *ChainExecutor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *ChainExecutor) balanceOf(ctx context.Context, token Token) (float64, error) {
	if token.Native {
		wei, err := c.reader.BalanceAt(ctx, c.wallet, nil)
		if err != nil {
			return 0, fmt.Errorf("get native balance: %w", err)
		}
		return fromBaseUnits(wei, nativeDecimals), nil
	}

	addr := common.HexToAddress(token.Address)
	out, err := c.call(ctx, erc20ABI, addr, "balanceOf", c.wallet)
	if err != nil {
		return 0, err
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("balanceOf returned %T", out[0])
	}
	decimals, err := c.decimals(ctx, token)
	if err != nil {
		return 0, err
	}
	return fromBaseUnits(raw, decimals), nil
}

func (c *ChainExecutor) quote(ctx context.Context, tokenIn, tokenOut Token, amountIn float64) (float64, error) {
	inAddr, err := c.quoteAddress(tokenIn)
	if err != nil {
		return 0, err
	}
	outAddr, err := c.quoteAddress(tokenOut)
	if err != nil {
		return 0, err
	}
	inDecimals, err := c.decimals(ctx, tokenIn)
	if err != nil {
		return 0, err
	}
	outDecimals, err := c.decimals(ctx, tokenOut)
	if err != nil {
		return 0, err
	}

	amount, err := toBaseUnits(amountIn, inDecimals)
	if err != nil {
		return 0, err
	}

	out, err := c.call(ctx, quoterABI, c.quoter, "quoteExactInputSingle",
		inAddr, outAddr, big.NewInt(c.feeTier), amount, big.NewInt(0))
	if err != nil {
		return 0, err
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("quoteExactInputSingle returned %T", out[0])
	}
	return fromBaseUnits(raw, outDecimals), nil
}

// quoteAddress maps native ETH onto its wrapped token for pool lookups.
func (c *ChainExecutor) quoteAddress(token Token) (common.Address, error) {
	if !token.Native {
		return common.HexToAddress(token.Address), nil
	}
	wrapped, ok := c.tokens.Lookup(wrappedNative)
	if !ok || wrapped.Native {
		return common.Address{}, errors.New("no wrapped token configured for native asset")
	}
	return common.HexToAddress(wrapped.Address), nil
}

func (c *ChainExecutor) decimals(ctx context.Context, token Token) (uint8, error) {
	if token.Native {
		return nativeDecimals, nil
	}
	if token.Decimals > 0 {
		return token.Decimals, nil
	}
	out, err := c.call(ctx, erc20ABI, common.HexToAddress(token.Address), "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals returned %T", out[0])
	}
	return d, nil
}

func (c *ChainExecutor) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.reader.CallContract(ctx, gethcore.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

func pow10(decimals uint8) *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func fromBaseUnits(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), pow10(decimals)).Float64()
	return f
}

func toBaseUnits(amount float64, decimals uint8) (*big.Int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("amount %v is not a finite number", amount)
	}
	out, _ := new(big.Float).Mul(big.NewFloat(amount), pow10(decimals)).Int(nil)
	if out == nil {
		return nil, fmt.Errorf("amount %v has no integer base-unit value", amount)
	}
	return out, nil
}
