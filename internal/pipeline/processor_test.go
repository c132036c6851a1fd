package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
	"github.com/Jetrug/companysheet/internal/store"
)

type extractorFunc func(ctx context.Context, fileName string, data []byte) ([]string, error)

func (f extractorFunc) Extract(ctx context.Context, fileName string, data []byte) ([]string, error) {
	return f(ctx, fileName, data)
}

type parserFunc func(ctx context.Context, pages []string, columns []string) (string, error)

func (f parserFunc) Parse(ctx context.Context, pages []string, columns []string) (string, error) {
	return f(ctx, pages, columns)
}

const goodResponse = "Extracted:\n```json\n{\"company_name\":{\"value\":\"Acme\",\"source\":[0]},\"revenue\":{\"value\":\"$10M\",\"source\":[2]}}\n```"

func okExtractor() extractorFunc {
	return func(_ context.Context, _ string, _ []byte) ([]string, error) {
		return []string{"page one", "page two"}, nil
	}
}

func okParser() parserFunc {
	return func(_ context.Context, _ []string, _ []string) (string, error) {
		return goodResponse, nil
	}
}

func TestProcessBatch_Success(t *testing.T) {
	st := store.NewMemory()
	p := NewProcessor(nil, okExtractor(), okParser(), nil, st, 2)

	results := p.ProcessBatch(context.Background(), []UploadFile{{Name: "acme.pdf", Data: []byte("x")}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Record)

	rec := *results[0].Record
	assert.True(t, rec.Persisted)
	assert.Equal(t, "acme.pdf", rec.FileName)
	assert.Equal(t, "$10M", rec.Fields[constants.Revenue][0].Value)

	stored, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// done tasks leave the pending set
	assert.Empty(t, p.Tasks())

	fresh := p.FreshRecords()
	require.Len(t, fresh, 1)
	assert.Equal(t, rec.ID, fresh[0].ID)
}

func TestProcessBatch_FailureIsolation(t *testing.T) {
	st := store.NewMemory()
	ext := extractorFunc(func(_ context.Context, fileName string, _ []byte) ([]string, error) {
		if fileName == "bad.pdf" {
			return nil, fmt.Errorf("%w: status 502", common.ErrExtractionFailed)
		}
		return []string{"page"}, nil
	})
	p := NewProcessor(nil, ext, okParser(), nil, st, 2)

	results := p.ProcessBatch(context.Background(), []UploadFile{
		{Name: "bad.pdf", Data: []byte("x")},
		{Name: "good.pdf", Data: []byte("y")},
	})
	require.Len(t, results, 2)

	// one record persisted despite the sibling failure
	stored, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "good.pdf", stored[0].FileName)

	// the failed file keeps a task with its error, not processing anymore
	tasks := p.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "bad.pdf", tasks[0].FileName)
	assert.Equal(t, constants.TaskFailed, tasks[0].Status)
	assert.Equal(t, "Failed to process file: bad.pdf", tasks[0].Error)
	assert.False(t, tasks[0].IsProcessing)
}

func TestProcessBatch_ParseFailureCarriesCollaboratorMessage(t *testing.T) {
	parser := parserFunc(func(_ context.Context, _ []string, _ []string) (string, error) {
		return "", fmt.Errorf("%w: status 429: rate limited", common.ErrParseFailed)
	})
	p := NewProcessor(nil, okExtractor(), parser, nil, store.NewMemory(), 1)

	results := p.ProcessBatch(context.Background(), []UploadFile{{Name: "a.pdf", Data: []byte("x")}})
	require.Error(t, results[0].Err)

	tasks := p.Tasks()
	require.Len(t, tasks, 1)
	assert.Contains(t, tasks[0].Error, "rate limited")
}

func TestProcessBatch_DecodeFailure(t *testing.T) {
	parser := parserFunc(func(_ context.Context, _ []string, _ []string) (string, error) {
		return "no structured block anywhere", nil
	})
	st := store.NewMemory()
	p := NewProcessor(nil, okExtractor(), parser, nil, st, 1)

	results := p.ProcessBatch(context.Background(), []UploadFile{{Name: "a.pdf", Data: []byte("x")}})
	require.Error(t, results[0].Err)
	assert.True(t, errors.Is(results[0].Err, common.ErrNoStructuredBlock))

	// failed runs produce no record
	stored, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, p.FreshRecords())
}

type persistFailStore struct{ *store.Memory }

func (f *persistFailStore) Upsert(_ context.Context, _ entity.Record) (entity.Record, error) {
	return entity.Record{}, fmt.Errorf("%w: connection refused", common.ErrPersistence)
}

func TestProcessBatch_PersistenceFailureDoesNotFailTask(t *testing.T) {
	st := &persistFailStore{Memory: store.NewMemory()}
	p := NewProcessor(nil, okExtractor(), okParser(), nil, st, 1)

	results := p.ProcessBatch(context.Background(), []UploadFile{{Name: "a.pdf", Data: []byte("x")}})
	require.NoError(t, results[0].Err, "persistence is best-effort relative to display")

	// task completed and left the pending set
	assert.Empty(t, p.Tasks())

	// the record is still surfaced, marked unpersisted
	fresh := p.FreshRecords()
	require.Len(t, fresh, 1)
	assert.False(t, fresh[0].Persisted)
}

func TestRegistry_OneTaskPerPendingFile(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Register(context.Background(), "a.pdf", 10)
	require.NoError(t, err)

	_, _, err = r.Register(context.Background(), "a.pdf", 10)
	assert.True(t, errors.Is(err, common.ErrDuplicateTask))
}

func TestRegistry_FailedTaskCanBeRetried(t *testing.T) {
	r := NewRegistry()
	task, _, err := r.Register(context.Background(), "a.pdf", 10)
	require.NoError(t, err)
	r.Fail("a.pdf", "boom")

	retried, _, err := r.Register(context.Background(), "a.pdf", 10)
	require.NoError(t, err, "re-adding a failed file retries it")
	assert.NotEqual(t, task.ID, retried.ID)
}

func TestRemoveTask_CancelsInFlightWork(t *testing.T) {
	started := make(chan struct{})
	var sawCancel atomic.Bool
	ext := extractorFunc(func(ctx context.Context, _ string, _ []byte) ([]string, error) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return nil, ctx.Err()
	})
	st := store.NewMemory()
	p := NewProcessor(nil, ext, okParser(), nil, st, 1)

	tasks := p.Submit([]UploadFile{{Name: "slow.pdf", Data: []byte("x")}})
	require.Len(t, tasks, 1)

	<-started
	require.NoError(t, p.RemoveTask(tasks[0].ID))

	require.Eventually(t, func() bool { return sawCancel.Load() }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, p.Tasks())

	// a canceled run never persists
	stored, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestProcessBatch_ManyFilesConcurrently(t *testing.T) {
	st := store.NewMemory()
	p := NewProcessor(nil, okExtractor(), okParser(), nil, st, 4)

	files := make([]UploadFile, 12)
	for i := range files {
		files[i] = UploadFile{Name: fmt.Sprintf("deck-%02d.pdf", i), Data: []byte("x")}
	}

	results := p.ProcessBatch(context.Background(), files)
	require.Len(t, results, 12)
	for _, res := range results {
		assert.NoError(t, res.Err, res.FileName)
	}

	stored, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 12)
	assert.Empty(t, p.Tasks())
}
