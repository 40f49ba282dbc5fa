package common

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	repo "github.com/joseph-ayodele/doctext/internal/repository"
)

// DatabaseResult holds an initialized, migrated database.
type DatabaseResult struct {
	DB      *repo.DB
	Cleanup func()
}

// InitDatabase opens the configured database and applies the schema.
// inmem (or DB_INMEM) selects a private in-memory SQLite database; a DB_URL of the
// form sqlite:<path> selects a SQLite file; anything else is treated as a PostgreSQL DSN.
func InitDatabase(ctx context.Context, cfg *Config, inmem bool, logger *slog.Logger) (*DatabaseResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := strings.TrimSpace(cfg.Database.DSN)

	var (
		db  *repo.DB
		err error
	)
	switch {
	case inmem || cfg.Database.InMemory:
		db, err = repo.OpenSQLite(ctx, "", logger)
	case strings.HasPrefix(dsn, "sqlite:"):
		db, err = repo.OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), logger)
	case dsn == "":
		return nil, NewAppError("CONFIG_ERROR", "DB_URL is required unless an in-memory database is requested", ErrInvalidInput)
	default:
		db, err = repo.Open(ctx, repo.Config{
			DSN:              dsn,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	if err != nil {
		return nil, NewAppError("DATABASE_ERROR", "failed to open database", errors.Join(ErrDatabase, err))
	}

	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		db.Close(logger)
		return nil, NewAppError("DATABASE_ERROR", "database ping failed", errors.Join(ErrDatabase, err))
	}
	if err := repo.Migrate(ctx, db); err != nil {
		db.Close(logger)
		return nil, NewAppError("DATABASE_ERROR", "schema migration failed", errors.Join(ErrDatabase, err))
	}
	logger.Info("database ready", "dialect", db.Dialect())

	return &DatabaseResult{
		DB:      db,
		Cleanup: func() { db.Close(logger) },
	}, nil
}
