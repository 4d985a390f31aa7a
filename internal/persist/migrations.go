package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/catcharena/server/internal/config"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the results schema up to date.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	before, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		before = 0
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	after, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err == nil && after != before {
		db.log.Info("results schema migrated", zap.Int64("from", before), zap.Int64("to", after))
	}
	return nil
}

// OpenLedger connects to the results database and migrates it. The caller
// closes the returned DB once the recorder has drained.
func OpenLedger(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, *ResultRepo, error) {
	db, err := NewDB(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, NewResultRepo(db), nil
}
