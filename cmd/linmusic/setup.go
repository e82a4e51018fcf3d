package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"linmusic/internal/shared"
)

// SetupConfig writes the starter configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	r.logger.Info("config written", "path", path)
	return r.writePlain("wrote %s\n", path)
}
