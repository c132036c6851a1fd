package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/entity"
	"github.com/Jetrug/companysheet/internal/store"
	"github.com/Jetrug/companysheet/internal/view"
)

func seedRecord(t *testing.T, st *store.Memory, fileName, name, revenue string, created time.Time) entity.Record {
	t.Helper()
	rec := entity.Record{
		ID:       uuid.New(),
		FileName: fileName,
		Fields: map[constants.Field][]entity.FieldValue{
			constants.CompanyName: {{Value: name, SourcePages: []int{0}}},
			constants.Revenue:     {{Value: revenue, SourcePages: []int{2}}},
		},
		CreatedAt: created,
	}
	stored, err := st.Upsert(context.Background(), rec)
	require.NoError(t, err)
	return stored
}

func openSheet(t *testing.T, xlsx []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportRecordsXLSX(t *testing.T) {
	st := store.NewMemory()
	seedRecord(t, st, "acme.pdf", "Acme Corp", "$10M", time.Now().UTC().Add(-time.Hour))
	seedRecord(t, st, "globex.pdf", "Globex", "$3M", time.Now().UTC())

	svc := NewService(st, nil)
	xlsx, err := svc.ExportRecordsXLSX(context.Background(), nil, view.Query{})
	require.NoError(t, err)
	require.NotEmpty(t, xlsx)

	f := openSheet(t, xlsx)

	h1, err := f.GetCellValue("Companies", "A1")
	require.NoError(t, err)
	assert.Equal(t, "File Name", h1)
	h2, err := f.GetCellValue("Companies", "B1")
	require.NoError(t, err)
	assert.Equal(t, constants.CompanyName.Label(), h2)

	rows, err := f.GetRows("Companies")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two records")

	// extensions are stripped for display
	assert.Equal(t, "globex", rows[1][0], "newest record first")
	assert.Equal(t, "acme", rows[2][0])
	assert.Equal(t, "Acme Corp", rows[2][1])
}

func TestExportRecordsXLSX_AppliesQuery(t *testing.T) {
	st := store.NewMemory()
	seedRecord(t, st, "acme.pdf", "Acme Corp", "$10M", time.Now().UTC().Add(-time.Hour))
	seedRecord(t, st, "globex.pdf", "Globex", "$3M", time.Now().UTC())

	svc := NewService(st, nil)
	xlsx, err := svc.ExportRecordsXLSX(context.Background(), nil, view.Query{Search: "globex"})
	require.NoError(t, err)

	f := openSheet(t, xlsx)
	rows, err := f.GetRows("Companies")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "globex", rows[1][0])
}

func TestExportRecordsXLSX_IncludesFreshRecords(t *testing.T) {
	st := store.NewMemory()
	fresh := entity.Record{
		ID:       uuid.New(),
		FileName: "initech.pdf",
		Fields: map[constants.Field][]entity.FieldValue{
			constants.CompanyName: {{Value: "Initech"}},
		},
	}

	svc := NewService(st, nil)
	xlsx, err := svc.ExportRecordsXLSX(context.Background(), []entity.Record{fresh}, view.Query{})
	require.NoError(t, err)

	f := openSheet(t, xlsx)
	rows, err := f.GetRows("Companies")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Initech", rows[1][1])
}
