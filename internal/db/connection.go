package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/db/drivers"
	"github.com/uptrace/bun/extra/bundebug"
)

func NewConnection(ctx context.Context, cfg *config.Config) (drivers.Driver, error) {
	var (
		driver drivers.Driver
		err    error
	)

	switch strings.ToLower(cfg.DB.Driver) {
	case config.DriverSQLite:
		driver, err = drivers.NewSQLiteDriver(ctx, cfg.DB.DSN)
	case config.DriverLibSQL:
		driver, err = drivers.NewLibSQLDriver(ctx, cfg.DB.DSN)
	case config.DriverPG:
		driver, err = drivers.NewPGDriver(ctx, cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("invalid database driver: %s", cfg.DB.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.DB.Driver, err)
	}

	driver.GetDB().AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(cfg.DB.Debug),
		bundebug.FromEnv(),
	))

	return driver, nil
}
