package bot

import (
	"context"

	"github.com/m3rciful/cupbot/core/bootstrap"
	"github.com/m3rciful/cupbot/internal/config"
	"github.com/m3rciful/cupbot/internal/store"
	"github.com/m3rciful/cupbot/internal/store/memory"
	"github.com/m3rciful/cupbot/internal/store/postgres"
	"github.com/m3rciful/cupbot/migrations"
)

// Bootstrap runs the infrastructure pipeline for the configured driver,
// seeds the bootstrap admin and assembles the App.
func Bootstrap(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	memoryDriver := cfg.Database.Driver == config.DriverMemory
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:       &cfg.Config,
		Database:     cfg.Database.Config,
		SkipDatabase: memoryDriver,
		Migrations:   migrations.FS,
	})
	if err != nil {
		return nil, err
	}

	var st store.Store
	if memoryDriver {
		st = memory.New()
	} else {
		st = postgres.New(infra.DB)
	}

	if err := bootstrap.RunSeeders(ctx, st, AdminSeeder(cfg.Telegram.AdminID)); err != nil {
		_ = infra.Close()
		return nil, err
	}

	app, err := New(cfg, Deps{Store: st, Closer: infra})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return app, nil
}
