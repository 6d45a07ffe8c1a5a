package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sampleConfig struct {
	Endpoint string `split_words:"true" required:"true"`
	Retries  int    `default:"3"`
}

var errEndpoint = errors.New("endpoint must not be local")

func (c sampleConfig) Validate() error {
	if c.Endpoint == "local" {
		return errEndpoint
	}
	return nil
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestNewLoadsFromEnvFile(t *testing.T) {
	path := writeEnvFile(t, "SAMPLE_ENDPOINT=https://example.org\nSAMPLE_RETRIES=7\n")
	t.Setenv(envFileVariable, path)
	t.Setenv("SAMPLE_ENDPOINT", "")
	os.Unsetenv("SAMPLE_ENDPOINT")
	t.Setenv("SAMPLE_RETRIES", "")
	os.Unsetenv("SAMPLE_RETRIES")

	conf, err := New[sampleConfig]("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Endpoint != "https://example.org" {
		t.Fatalf("Endpoint = %q", conf.Endpoint)
	}
	if conf.Retries != 7 {
		t.Fatalf("Retries = %d, want 7", conf.Retries)
	}
}

func TestNewEnvironmentWinsOverFile(t *testing.T) {
	path := writeEnvFile(t, "SAMPLE_ENDPOINT=https://file.example\n")
	t.Setenv(envFileVariable, path)
	t.Setenv("SAMPLE_ENDPOINT", "https://env.example")

	conf, err := New[sampleConfig]("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Endpoint != "https://env.example" {
		t.Fatalf("Endpoint = %q, want env value", conf.Endpoint)
	}
	if conf.Retries != 3 {
		t.Fatalf("Retries = %d, want default 3", conf.Retries)
	}
}

func TestNewRunsValidator(t *testing.T) {
	t.Setenv(envFileVariable, writeEnvFile(t, ""))
	t.Setenv("SAMPLE_ENDPOINT", "local")

	_, err := New[sampleConfig]("sample")
	if !errors.Is(err, errEndpoint) {
		t.Fatalf("New() error = %v, want errEndpoint", err)
	}
}

func TestNewMissingRequired(t *testing.T) {
	t.Setenv(envFileVariable, writeEnvFile(t, ""))
	t.Setenv("SAMPLE_ENDPOINT", "")
	os.Unsetenv("SAMPLE_ENDPOINT")

	if _, err := New[sampleConfig]("sample"); err == nil {
		t.Fatal("expected error for missing required field")
	}
}
