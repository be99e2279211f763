package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/hpx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("creating config file", "path", r.configPath)

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.writePlain("✓ Config written to %s\n", r.configPath)
	return r.writePlain("Edit [api] base_url to point at your HouseParty backend.\n")
}

// SetupDatabase opens the configured storage, which creates the SQLite file and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "driver", r.config.Storage.Driver, "path", r.config.StoragePath())

	if err := r.open(ctx); err != nil {
		return fmt.Errorf("failed to set up storage: %w", err)
	}

	applied, err := shared.AppliedMigrations(r.handle.DB)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.StoragePath())
	r.writePlain("✓ Storage ready (driver: %s)\n", r.handle.Driver)
	for _, m := range applied {
		r.writePlain("  migration %03d applied %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
