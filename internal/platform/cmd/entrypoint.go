// Package cmd holds the startup steps shared by forge commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/andysmith26/forge/internal/platform/config"
	"github.com/andysmith26/forge/internal/platform/otel"
	"github.com/andysmith26/forge/internal/platform/timeouts"
)

// Command names, also used as the telemetry service name.
const (
	ServiceForge       = "forge"
	ServiceMaintenance = "maintenance"
)

// DotEnvPathEnv names the variable that points at an optional .env file.
const DotEnvPathEnv = "FORGE_DOTENV"

// ParseConfig fills cfg from the optional .env file and the environment.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if err := config.LoadDotEnv(os.Getenv(DotEnvPathEnv)); err != nil {
		return err
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses flags; a nil args slice means no flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry sets up tracing for service, calls run and flushes
// telemetry within timeouts.Shutdown once run returns.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return errors.New("service name is required")
	case run == nil:
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}
