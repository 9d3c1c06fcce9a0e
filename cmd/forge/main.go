package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	forgecmd "github.com/andysmith26/forge/internal/cmd/forge"
)

func main() {
	cfg, err := forgecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[FORGE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := forgecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
