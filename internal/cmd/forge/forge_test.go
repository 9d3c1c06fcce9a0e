package forge

import (
	"flag"
	"io"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("FORGE_DOTENV", "")
	fs := flag.NewFlagSet("forge", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8090 {
		t.Fatalf("expected default port 8090, got %d", cfg.Port)
	}
	if cfg.DBPath != "data/forge.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.RedisAddr != "" || cfg.RedisChannelPrefix != "forge:" {
		t.Fatalf("unexpected redis config: %+v", cfg)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("FORGE_DOTENV", "")
	t.Setenv("FORGE_PORT", "9100")
	t.Setenv("FORGE_REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("FORGE_DISABLED_PORTS", "pins")

	fs := flag.NewFlagSet("forge", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9200", "-log-level", "debug"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9200 {
		t.Fatalf("expected flag port 9200, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.LogLevel)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" || cfg.DisabledPorts != "pins" {
		t.Fatalf("env values not applied: %+v", cfg)
	}
}

func TestParseConfigRejectsUnknownFlag(t *testing.T) {
	t.Setenv("FORGE_DOTENV", "")
	fs := flag.NewFlagSet("forge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := ParseConfig(fs, []string{"-nope"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
