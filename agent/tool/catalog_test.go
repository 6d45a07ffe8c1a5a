package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	contractx "github.com/tanpawarit/blockagent/agent/contract"
)

func TestCatalogDispatchesByType(t *testing.T) {
	t.Parallel()

	var gotParams map[string]any
	catalog := NewCatalog("Unknown query type", map[string]Func{
		"pool_liquidity": func(_ context.Context, params map[string]any) (contractx.ExecutionResult, error) {
			gotParams = params
			return contractx.ExecutionResult{"ok": true}, nil
		},
	})

	out, err := catalog.Execute(context.Background(), "pool_liquidity", map[string]any{"token0": "WETH"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["ok"] != true || gotParams["token0"] != "WETH" {
		t.Fatalf("unexpected dispatch: out=%#v params=%#v", out, gotParams)
	}
}

func TestCatalogFallback(t *testing.T) {
	t.Parallel()

	catalog := NewTransactionCatalog(&ChainExecutor{})
	out, err := catalog.Execute(context.Background(), "token_bridge", nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if msg, ok := out.ErrorMessage(); !ok || msg != "Unknown transaction type" {
		t.Fatalf("error = %q, want Unknown transaction type", msg)
	}
}

func TestLoadTokenRegistryOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens.yaml")
	content := "tokens:\n  link:\n    address: \"0x514910771AF9Ca656af840dff83E8264EcF986CA\"\n    decimals: 18\n  usdc:\n    address: \"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48\"\n    decimals: 6\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write tokens: %v", err)
	}

	reg, err := LoadTokenRegistry(path)
	if err != nil {
		t.Fatalf("LoadTokenRegistry() error = %v", err)
	}
	if _, ok := reg.Lookup("Link"); !ok {
		t.Fatal("LINK should be loaded from file")
	}
	if usdc, _ := reg.Lookup("USDC"); usdc.Decimals != 6 {
		t.Fatalf("USDC decimals = %d, want 6", usdc.Decimals)
	}
	if _, ok := reg.Lookup("WETH"); !ok {
		t.Fatal("defaults should survive the overlay")
	}
}

func TestLoadTokenRegistryRejectsBadAddress(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens.yaml")
	if err := os.WriteFile(path, []byte("tokens:\n  bad:\n    address: nope\n"), 0o600); err != nil {
		t.Fatalf("write tokens: %v", err)
	}
	if _, err := LoadTokenRegistry(path); err == nil {
		t.Fatal("expected error for invalid address")
	}
}
