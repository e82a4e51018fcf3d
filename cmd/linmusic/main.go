package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"linmusic/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("LINMUSIC_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("ignoring unreadable config.toml", "err", err)
		}
	}

	runner, err := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("startup error: %v", err)
	}

	app := &cli.Command{
		Name:     "linmusic",
		Usage:    "Playlist library, lyrics and song resolution for the LIN music player",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
