package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Jetrug/companysheet/internal/common"
)

// Open picks the backend by DSN shape: postgres URLs use pgx, an empty DSN
// falls back to the in-memory store, anything else is treated as a SQLite
// path.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (RecordStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case cfg.DSN == "":
		logger.Warn("store.open.inmemory", "hint", "records will not survive a restart; set DB_URL")
		return NewMemory(), nil
	case strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://"):
		return NewPostgres(ctx, cfg, logger)
	default:
		return NewSQLite(strings.TrimPrefix(cfg.DSN, "sqlite:"), logger)
	}
}
