package storage

import (
	"context"
	"errors"
	"strings"

	logx "notibridge/pkg/logx"
)

// KV is the minimal persistence API used by the history store.
//
// Put is atomic for a single key. Get returns ok=false for keys that were
// never written.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Compactor is implemented by backends that benefit from periodic
// maintenance (journal compaction). Driven by the app's cron job.
type Compactor interface {
	Compact(ctx context.Context) error
}

// Open initializes the configured backend.
func Open(cfg Config, log logx.Logger) (KV, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
