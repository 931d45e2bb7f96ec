package main

import (
	"context"
	"errors"
	"fmt"

	config "github.com/NordCoder/tifi/internal/config/api"
	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/NordCoder/tifi/internal/domain/user"
	"github.com/NordCoder/tifi/internal/obs/retry"
	pg "github.com/NordCoder/tifi/internal/repository/postgres"
	"github.com/NordCoder/tifi/internal/repository/sqlite"
	"github.com/NordCoder/tifi/internal/services/auth"
	"go.uber.org/zap"
)

// storage is whichever driver storage.driver picked, behind the domain ports.
type storage struct {
	notifications notification.Repo
	users         user.Repo
	tx            auth.Transactor
	ping          func(ctx context.Context) error
	close         func()
}

func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		var db *pg.DB
		err := retry.Do(ctx, func() error {
			var err error
			db, err = pg.NewDB(ctx, cfg.DB)
			if errors.Is(err, pg.ErrBadDSN) {
				return retry.Permanent(err)
			}
			return err
		}, retry.DefaultStartupPolicy("postgres", logger))
		if err != nil {
			return nil, err
		}
		return &storage{
			notifications: pg.NewNotificationRepo(db),
			users:         pg.NewUserRepo(db),
			tx:            pg.NewTransactor(db, logger),
			ping:          db.Ping,
			close:         db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{
			notifications: sqlite.NewNotificationRepo(db),
			users:         sqlite.NewUserRepo(db),
			tx:            sqlite.NewTransactor(db, logger),
			ping:          db.Ping,
			close:         func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
