// Package forge parses forge command flags and starts the service process.
package forge

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/andysmith26/forge/internal/platform/cmd"
	"github.com/andysmith26/forge/internal/platform/logging"
	"github.com/andysmith26/forge/internal/services/forge/app"
)

// Config holds forge command configuration.
type Config struct {
	Port               int    `env:"FORGE_PORT" envDefault:"8090"`
	DBPath             string `env:"FORGE_DB_PATH" envDefault:"data/forge.db"`
	LogLevel           string `env:"FORGE_LOG_LEVEL" envDefault:"info"`
	LogDevelopment     bool   `env:"FORGE_LOG_DEVELOPMENT"`
	RedisAddr          string `env:"FORGE_REDIS_ADDR"`
	RedisChannelPrefix string `env:"FORGE_REDIS_CHANNEL_PREFIX" envDefault:"forge:"`
	DisabledPorts      string `env:"FORGE_DISABLED_PORTS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The forge server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the forge sqlite database")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for realtime fan-out (empty disables)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the forge service.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceForge, func(ctx context.Context) error {
		return app.Run(ctx, cfg.Port, app.Config{
			Backend:            app.BackendSQLite,
			DBPath:             cfg.DBPath,
			RedisAddr:          cfg.RedisAddr,
			RedisChannelPrefix: cfg.RedisChannelPrefix,
			Disabled:           app.ParsePorts(cfg.DisabledPorts),
			Logger:             logger,
		})
	})
}
