package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"linmusic/internal/catalog"
	"linmusic/internal/shared"
)

// Serve runs the catalog server until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Catalog
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.Port = port
	}
	if path := cmd.String("db"); path != "" {
		cfg.DBPath = path
	}

	db, err := shared.NewDatabase(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, err := catalog.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}

	server := catalog.NewServer(store, r.logger)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return server.Run(ctx, addr)
}
