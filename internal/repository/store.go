package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
)

// Store bundles the association repository with the lifecycle of whatever backs it.
type Store struct {
	Associations AssociationRepository

	driver  string
	migrate func(ctx context.Context) error
	ping    func(ctx context.Context) error
	closers []func() error
	logger  *slog.Logger
}

// OpenStore opens the backend named by cfg.Driver. The caller owns Close.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{driver: cfg.Driver, logger: logger}

	switch cfg.Driver {
	case constants.DriverPostgres:
		drv, pool, err := Open(ctx, Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, common.NewAppError("STORE_ERROR", "open postgres", fmt.Errorf("%w: %v", common.ErrDatabase, err))
		}
		s.Associations = NewSQLAssociationRepository(drv, logger)
		s.migrate = func(ctx context.Context) error { return Migrate(ctx, drv, logger) }
		s.ping = func(ctx context.Context) error { return HealthCheck(ctx, drv.DB(), 0, logger) }
		s.closers = append(s.closers, func() error { Close(drv, pool, logger); return nil })

	case constants.DriverSQLite:
		drv, err := OpenSQLite(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, common.NewAppError("STORE_ERROR", "open sqlite", fmt.Errorf("%w: %v", common.ErrDatabase, err))
		}
		s.Associations = NewSQLAssociationRepository(drv, logger)
		s.migrate = func(ctx context.Context) error { return Migrate(ctx, drv, logger) }
		s.ping = func(ctx context.Context) error { return HealthCheck(ctx, drv.DB(), 0, logger) }
		s.closers = append(s.closers, drv.Close)

	case constants.DriverBadger:
		db, err := OpenBadger(cfg.DSN, cfg.DSN == ":memory:", logger)
		if err != nil {
			return nil, common.NewAppError("STORE_ERROR", "open badger", fmt.Errorf("%w: %v", common.ErrDatabase, err))
		}
		repo, release, err := NewBadgerAssociationRepository(db, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.Associations = repo
		s.migrate = func(context.Context) error { return nil }
		s.ping = func(context.Context) error { return badgerPing(db) }
		s.closers = append(s.closers, release, db.Close)

	default:
		return nil, common.InvalidInput(fmt.Sprintf("unsupported store driver %q", cfg.Driver))
	}

	logger.Info("store opened", "driver", cfg.Driver)
	return s, nil
}

// Driver returns the backend name.
func (s *Store) Driver() string { return s.driver }

// Migrate prepares the schema. It is a no-op for key-value backends.
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

// HealthCheck pings the backend, bounded by timeout when positive.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.ping(ctx); err != nil {
		s.logger.Error("store health check failed", "driver", s.driver, "error", err)
		return err
	}
	return nil
}

// Close releases the backend in the order resources were acquired.
func (s *Store) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Error("failed to close store", "driver", s.driver, "error", err)
		}
	}
}

func badgerPing(db *badger.DB) error {
	if db.IsClosed() {
		return fmt.Errorf("badger database is closed")
	}
	return db.View(func(*badger.Txn) error { return nil })
}
