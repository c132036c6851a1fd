package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
)

// Postgres is the shared-deployment RecordStore, backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres connects, applies pool limits from cfg, and creates the
// company_records table when it does not exist yet.
func NewPostgres(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "companysheet"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	p := &Postgres{pool: pool, log: logger}
	if err := p.ensureSchemaExists(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("successfully connected to database")
	return p, nil
}

func (p *Postgres) ensureSchemaExists(ctx context.Context) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS company_records (\n")
	b.WriteString("  id UUID PRIMARY KEY,\n")
	b.WriteString("  file_name TEXT NOT NULL,\n")
	for _, col := range fieldColumns {
		fmt.Fprintf(&b, "  %s TEXT,\n", col)
	}
	b.WriteString("  created_at TIMESTAMPTZ NOT NULL,\n")
	b.WriteString("  updated_at TIMESTAMPTZ NOT NULL\n")
	b.WriteString(")")

	if _, err := p.pool.Exec(ctx, b.String()); err != nil {
		return fmt.Errorf("create company_records: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]entity.Record, error) {
	rows, err := p.pool.Query(ctx, selectSQL()+" ORDER BY created_at DESC")
	if err != nil {
		return nil, common.WrapError(err, "list records")
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan, parsePGTime)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (entity.Record, error) {
	row := p.pool.QueryRow(ctx, selectSQL()+" WHERE id = $1", id)
	rec, err := scanRecord(row.Scan, parsePGTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Record{}, common.ErrNotFound
	}
	return rec, err
}

func (p *Postgres) Upsert(ctx context.Context, rec entity.Record) (entity.Record, error) {
	rec.UpdatedAt = time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	args := make([]any, 0, len(fieldColumns)+4)
	args = append(args, rec.ID, rec.FileName)
	for _, f := range constants.Fields() {
		cell, err := encodeField(rec.Fields[f])
		if err != nil {
			return entity.Record{}, err
		}
		args = append(args, cell)
	}
	args = append(args, rec.CreatedAt, rec.UpdatedAt)

	var b strings.Builder
	b.WriteString("INSERT INTO company_records (id, file_name")
	for _, col := range fieldColumns {
		b.WriteString(", ")
		b.WriteString(col)
	}
	b.WriteString(", created_at, updated_at) VALUES (")
	for i := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(") ON CONFLICT (id) DO UPDATE SET file_name = excluded.file_name")
	for _, col := range fieldColumns {
		fmt.Fprintf(&b, ", %s = excluded.%s", col, col)
	}
	b.WriteString(", updated_at = excluded.updated_at")

	if _, err := p.pool.Exec(ctx, b.String(), args...); err != nil {
		return entity.Record{}, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	rec.Persisted = true
	return rec, nil
}

func (p *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM company_records WHERE id = $1", id)
	if err != nil {
		return common.WrapError(err, "delete record")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Ping catches DSN issues early; the server runs it once at startup.
func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func parsePGTime(v any) (time.Time, error) {
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
	return t.UTC(), nil
}
