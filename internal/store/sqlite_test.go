package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
)

// setupTestDB creates an in-memory SQLite store for testing.
func setupTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(name string) entity.Record {
	return entity.Record{
		ID:       uuid.New(),
		FileName: name,
		Fields: map[constants.Field][]entity.FieldValue{
			constants.CompanyName: {{Value: "Acme"}},
			constants.Revenue: {
				{Value: "$10M", SourcePages: []int{2}},
				{Value: "$9.8M", SourcePages: []int{5}, Guess: true},
			},
		},
	}
}

func TestSQLiteUpsertAndGet(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	rec := sampleRecord("acme.pdf")
	stored, err := s.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, stored.Persisted)
	assert.False(t, stored.UpdatedAt.IsZero())

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "acme.pdf", got.FileName)

	require.Len(t, got.Fields[constants.Revenue], 2)
	assert.Equal(t, "$10M", got.Fields[constants.Revenue][0].Value)
	assert.Equal(t, []int{2}, got.Fields[constants.Revenue][0].SourcePages)
	assert.True(t, got.Fields[constants.Revenue][1].Guess)

	// fields never stored come back empty, not nil
	require.NotNil(t, got.Fields[constants.EBITDA])
	assert.Empty(t, got.Fields[constants.EBITDA])
}

func TestSQLiteUpsertIsIdempotentOnID(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	rec := sampleRecord("v1.pdf")
	first, err := s.Upsert(ctx, rec)
	require.NoError(t, err)

	rec.FileName = "v2.pdf"
	rec.Fields[constants.EBITDA] = []entity.FieldValue{{Value: "$1M"}}
	rec.CreatedAt = first.CreatedAt
	_, err = s.Upsert(ctx, rec)
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "upsert on the same id must not duplicate")
	assert.Equal(t, "v2.pdf", all[0].FileName)
	require.Len(t, all[0].Fields[constants.EBITDA], 1)
}

func TestSQLiteListNewestFirst(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	older := sampleRecord("older.pdf")
	newer := sampleRecord("newer.pdf")
	older.CreatedAt = time.Now().UTC().AddDate(0, 0, -1)

	_, err := s.Upsert(ctx, older)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, newer)
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer.pdf", all[0].FileName)
	assert.Equal(t, "older.pdf", all[1].FileName)
}

func TestSQLiteDelete(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	rec := sampleRecord("gone.pdf")
	_, err := s.Upsert(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, rec.ID))
	_, err = s.Get(ctx, rec.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	assert.True(t, errors.Is(s.Delete(ctx, rec.ID), common.ErrNotFound))
}

func TestMemoryStoreMatchesSQLiteSemantics(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := sampleRecord("mem.pdf")
	stored, err := m.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, stored.Persisted)

	// mutations on the returned copy must not leak into the store
	stored.Fields[constants.Revenue][0].Value = "tampered"
	got, err := m.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "$10M", got.Fields[constants.Revenue][0].Value)

	_, err = m.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
