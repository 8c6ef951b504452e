package storage

import (
	"context"
	"fmt"

	"github.com/m4cd4r4/SwanFlow/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Backend bundles the storage roles a process needs for the configured driver.
type Backend struct {
	Sink   Sink
	Reader Reader
	Totals TotalsLoader
	// Postgres is nil for the in-memory driver.
	Postgres *PostgresStore
	closers  []func()
}

func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// Open connects the configured storage driver. For Postgres the write side
// goes through pgx and the read side through gorm, over one schema.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := NewMemoryStore()
		return &Backend{Sink: mem, Reader: mem, Totals: mem}, nil
	}

	dsn := cfg.Database.GetDSN()
	pg, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	b := &Backend{Sink: pg, Totals: pg, Postgres: pg, closers: []func(){pg.Close}}

	if err := pg.EnsureSchema(ctx); err != nil {
		b.Close()
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to get sql db handle: %w", err)
	}
	b.closers = append(b.closers, func() { sqlDB.Close() })
	b.Reader = NewStatsRepository(db)

	logger.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))
	return b, nil
}
