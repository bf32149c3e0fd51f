package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/billbatista/acasinha-diary/config"
	"github.com/billbatista/acasinha-diary/eventlogger"
	"github.com/billbatista/acasinha-diary/storage"
	"github.com/billbatista/acasinha-diary/storage/memory"
	"github.com/billbatista/acasinha-diary/storage/postgres"
	"github.com/billbatista/acasinha-diary/storage/sqlite"
)

// backend is the storage the diary runs on. db is nil for the memory driver.
type backend struct {
	kv      storage.KV
	db      *sql.DB
	dialect eventlogger.Dialect
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return &backend{kv: memory.NewStore()}, nil
	case config.DriverSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return &backend{kv: s, db: s.DB(), dialect: eventlogger.DialectSQLite}, nil
	case config.DriverPostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return &backend{kv: s, db: s.DB(), dialect: eventlogger.DialectPostgres}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (b *backend) Close() error {
	return b.kv.Close()
}

// buildEventLogger assembles the configured sinks. The returned func closes
// whatever needs closing.
func buildEventLogger(ctx context.Context, cfg *config.Config, b *backend) (eventlogger.EventLogger, func() error, error) {
	var sinks eventlogger.MultiLogger
	closeFn := func() error { return nil }

	if cfg.EventsSQL && b.db != nil {
		sqlLogger := eventlogger.NewSqlEventLogger(b.db, b.dialect)
		if err := sqlLogger.EnsureSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("creating events table: %w", err)
		}
		sinks = append(sinks, sqlLogger)
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaLogger := eventlogger.NewKafkaEventLogger(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, kafkaLogger)
		closeFn = kafkaLogger.Close
	}

	switch len(sinks) {
	case 0:
		return eventlogger.Discard{}, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return sinks, closeFn, nil
	}
}
