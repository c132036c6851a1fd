package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
)

// SQLite is a file-backed RecordStore, the default for local single-user use.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLite opens (or creates) the database at path. ":memory:" works for
// tests.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLite{db: db, log: logger}
	if err := s.ensureSchemaExists(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) ensureSchemaExists() error {
	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='company_records'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return s.initSchema()
	}
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	return nil
}

func (s *SQLite) initSchema() error {
	var b strings.Builder
	b.WriteString("CREATE TABLE company_records (\n")
	b.WriteString("  id TEXT PRIMARY KEY,\n")
	b.WriteString("  file_name TEXT NOT NULL,\n")
	for _, col := range fieldColumns {
		fmt.Fprintf(&b, "  %s TEXT,\n", col)
	}
	b.WriteString("  created_at TEXT NOT NULL,\n")
	b.WriteString("  updated_at TEXT NOT NULL\n")
	b.WriteString(")")

	if _, err := s.db.Exec(b.String()); err != nil {
		return fmt.Errorf("create company_records: %w", err)
	}
	s.log.Info("store.sqlite.schema_created")
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]entity.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL()+" ORDER BY created_at DESC")
	if err != nil {
		return nil, common.WrapError(err, "list records")
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan, parseSQLiteTime)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (entity.Record, error) {
	row := s.db.QueryRowContext(ctx, selectSQL()+" WHERE id = ?", id.String())
	rec, err := scanRecord(row.Scan, parseSQLiteTime)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Record{}, common.ErrNotFound
	}
	return rec, err
}

func (s *SQLite) Upsert(ctx context.Context, rec entity.Record) (entity.Record, error) {
	args, err := upsertArgs(&rec)
	if err != nil {
		return entity.Record{}, err
	}

	var b strings.Builder
	b.WriteString("INSERT INTO company_records (id, file_name")
	for _, col := range fieldColumns {
		b.WriteString(", ")
		b.WriteString(col)
	}
	b.WriteString(", created_at, updated_at) VALUES (?")
	b.WriteString(strings.Repeat(", ?", len(fieldColumns)+3))
	b.WriteString(") ON CONFLICT(id) DO UPDATE SET file_name = excluded.file_name")
	for _, col := range fieldColumns {
		fmt.Fprintf(&b, ", %s = excluded.%s", col, col)
	}
	b.WriteString(", updated_at = excluded.updated_at")

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return entity.Record{}, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	rec.Persisted = true
	return rec, nil
}

func (s *SQLite) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM company_records WHERE id = ?", id.String())
	if err != nil {
		return common.WrapError(err, "delete record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

// selectSQL builds the shared column list; both SQL stores scan in this order.
func selectSQL() string {
	return "SELECT id, file_name, " + strings.Join(fieldColumns, ", ") +
		", created_at, updated_at FROM company_records"
}

// upsertArgs flattens a record into the selectSQL column order, stamping
// UpdatedAt.
func upsertArgs(rec *entity.Record) ([]any, error) {
	rec.UpdatedAt = time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	args := make([]any, 0, len(fieldColumns)+4)
	args = append(args, rec.ID.String(), rec.FileName)
	for _, f := range constants.Fields() {
		cell, err := encodeField(rec.Fields[f])
		if err != nil {
			return nil, err
		}
		args = append(args, cell)
	}
	args = append(args, rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano))
	return args, nil
}

// scanRecord reads one row produced by selectSQL. times converts the raw
// timestamp cell, which differs between the sqlite (TEXT) and postgres
// (timestamptz) stores.
func scanRecord(scan func(...any) error, times func(any) (time.Time, error)) (entity.Record, error) {
	var (
		idStr    string
		fileName string
		cells    = make([]*string, len(fieldColumns))
		rawCr    any
		rawUp    any
	)

	dest := make([]any, 0, len(fieldColumns)+4)
	dest = append(dest, &idStr, &fileName)
	for i := range cells {
		dest = append(dest, &cells[i])
	}
	dest = append(dest, &rawCr, &rawUp)

	if err := scan(dest...); err != nil {
		return entity.Record{}, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return entity.Record{}, fmt.Errorf("parse record id: %w", err)
	}
	created, err := times(rawCr)
	if err != nil {
		return entity.Record{}, err
	}
	updated, err := times(rawUp)
	if err != nil {
		return entity.Record{}, err
	}

	rec := entity.Record{
		ID:        id,
		FileName:  fileName,
		Fields:    make(map[constants.Field][]entity.FieldValue, len(fieldColumns)),
		Persisted: true,
		CreatedAt: created,
		UpdatedAt: updated,
	}
	for i, f := range constants.Fields() {
		rec.Fields[f] = decodeField(cells[i])
	}
	return rec, nil
}

func parseSQLiteTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		if b, ok := v.([]byte); ok {
			s = string(b)
		} else {
			return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
		}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t, nil
}
