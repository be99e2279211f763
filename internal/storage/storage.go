// Package storage defines the persistent key-value substrate behind the session store and opens the configured backend.
//
// Three backends satisfy [Storage]:
//   - [Memory] : process-local map, used by tests and driver "memory"
//   - [repositories.KVRepository] : SQLite "kv" table, the default driver
//   - [Redis] : go-redis client with an optional key prefix
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/repositories"
	"github.com/desertthunder/hpx/internal/shared"
	"github.com/redis/go-redis/v9"
)

// Storage is a durable string key-value store.
//
// Reading an absent key returns found == false and a nil error.
// Removing an absent key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

var (
	_ Storage = (*Memory)(nil)
	_ Storage = (*Redis)(nil)
	_ Storage = (*repositories.KVRepository)(nil)
)

// Handle bundles the opened substrate with the SQLite database used for local caches.
type Handle struct {
	Storage Storage
	DB      *sql.DB
	Driver  string
	closers []func() error
}

// Close releases every resource opened by [Open].
func (h *Handle) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects the backend named by cfg.Storage.Driver.
//
// The SQLite database is always opened (in memory for driver "memory") because the song cache lives there.
func Open(ctx context.Context, cfg *shared.Config, logger *log.Logger) (*Handle, error) {
	path := cfg.StoragePath()
	if cfg.Storage.Driver == "memory" {
		path = shared.MemoryDatabase
	}

	db, err := shared.OpenMigrated(path, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	h := &Handle{DB: db, Driver: cfg.Storage.Driver}
	h.closers = append(h.closers, db.Close)

	switch cfg.Storage.Driver {
	case "sqlite":
		h.Storage = repositories.NewKVRepository(db)
	case "memory":
		h.Storage = NewMemory()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		h.closers = append(h.closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			h.Close()
			return nil, fmt.Errorf("%w: redis ping %s: %v", shared.ErrStorage, cfg.Storage.RedisAddr, err)
		}
		h.Storage = NewRedis(client, cfg.Storage.KeyPrefix)
	default:
		h.Close()
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownDriver, cfg.Storage.Driver)
	}

	if logger != nil {
		logger.Debug("storage opened", "driver", h.Driver, "path", path)
	}

	return h, nil
}
