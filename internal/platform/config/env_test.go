package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"FORGE_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FORGE_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDotEnvFillsMissingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FORGE_TEST_PORT=456\nFORGE_TEST_DOTENV_ONLY=yes\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("FORGE_TEST_PORT", "789")
	t.Setenv("FORGE_TEST_DOTENV_ONLY", "")
	os.Unsetenv("FORGE_TEST_DOTENV_ONLY")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path, ""); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("FORGE_TEST_PORT"); got != "789" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
	if got := os.Getenv("FORGE_TEST_DOTENV_ONLY"); got != "yes" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
}
