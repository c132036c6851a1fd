package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/assembler"
	"github.com/Jetrug/companysheet/internal/decoder"
	"github.com/Jetrug/companysheet/internal/entity"
	"github.com/Jetrug/companysheet/internal/extract"
	"github.com/Jetrug/companysheet/internal/llm"
	"github.com/Jetrug/companysheet/internal/store"
)

// UploadFile is one accepted intake file.
type UploadFile struct {
	Name string
	Data []byte
}

// BatchResult is the per-file outcome of a synchronous batch run.
type BatchResult struct {
	FileName string
	Record   *entity.Record
	Err      error
}

// Processor drives the extract → parse → decode → persist pipeline, one
// state machine per file. Files run concurrently up to a limit; one file's
// failure never blocks or aborts a sibling.
type Processor struct {
	logger      *slog.Logger
	extractor   extract.PageExtractor
	parser      llm.FieldParser
	decoder     *decoder.Decoder
	store       store.RecordStore
	tasks       *Registry
	concurrency int

	mu    sync.Mutex
	fresh []entity.Record // records produced this session, newest first
}

func NewProcessor(
	logger *slog.Logger,
	extractor extract.PageExtractor,
	parser llm.FieldParser,
	dec *decoder.Decoder,
	st store.RecordStore,
	concurrency int,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if dec == nil {
		dec = decoder.New(logger)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		logger:      logger,
		extractor:   extractor,
		parser:      parser,
		decoder:     dec,
		store:       st,
		tasks:       NewRegistry(),
		concurrency: concurrency,
	}
}

// Tasks snapshots the pending/failed upload tasks.
func (p *Processor) Tasks() []entity.UploadTask { return p.tasks.List() }

// RemoveTask clears one task and cancels its in-flight work.
func (p *Processor) RemoveTask(id uuid.UUID) error { return p.tasks.Remove(id) }

// FreshRecords returns the records produced since startup, newest first.
// These are merged with the persisted list by the view layer, which lets an
// unpersisted record (store down) still reach the table.
func (p *Processor) FreshRecords() []entity.Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]entity.Record, len(p.fresh))
	for i := range p.fresh {
		out[i] = p.fresh[i].Clone()
	}
	return out
}

// Submit registers tasks for the batch and processes it in the background.
// The returned tasks reflect the just-registered pending state.
func (p *Processor) Submit(files []UploadFile) []entity.UploadTask {
	tasks, units := p.register(context.Background(), files)
	go p.run(units)
	return tasks
}

// ProcessBatch runs the batch and blocks until every file settles.
func (p *Processor) ProcessBatch(ctx context.Context, files []UploadFile) []BatchResult {
	_, units := p.register(ctx, files)
	return p.run(units)
}

type unit struct {
	file UploadFile
	ctx  context.Context
}

func (p *Processor) register(parent context.Context, files []UploadFile) ([]entity.UploadTask, []unit) {
	tasks := make([]entity.UploadTask, 0, len(files))
	units := make([]unit, 0, len(files))
	for _, f := range files {
		task, runCtx, err := p.tasks.Register(parent, f.Name, int64(len(f.Data)))
		if err != nil {
			p.logger.Warn("pipeline.register.duplicate", "file", f.Name)
			continue
		}
		tasks = append(tasks, task)
		units = append(units, unit{file: f, ctx: runCtx})
	}
	return tasks, units
}

func (p *Processor) run(units []unit) []BatchResult {
	results := make([]BatchResult, len(units))

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			rec, err := p.processFile(u.ctx, u.file)
			results[i] = BatchResult{FileName: u.file.Name, Record: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// processFile walks one file through the state machine. Every failure is
// absorbed into the task's error state; the returned error only feeds batch
// summaries.
func (p *Processor) processFile(ctx context.Context, f UploadFile) (*entity.Record, error) {
	start := time.Now()

	p.tasks.Advance(f.Name, constants.TaskExtracting, constants.ProgressStarted)
	pages, err := p.extractor.Extract(ctx, f.Name, f.Data)
	if err != nil {
		p.logger.Error("pipeline.extract.failed", "file", f.Name, "error", err)
		p.tasks.Fail(f.Name, "Failed to process file: "+f.Name)
		return nil, err
	}
	p.logger.Info("pipeline.extract.ok", "file", f.Name, "pages", len(pages))

	p.tasks.Advance(f.Name, constants.TaskParsing, constants.ProgressExtracted)
	raw, err := p.parser.Parse(ctx, pages, constants.AsStringSlice())
	if err != nil {
		p.logger.Error("pipeline.parse.failed", "file", f.Name, "error", err)
		p.tasks.Fail(f.Name, err.Error())
		return nil, err
	}

	p.tasks.Advance(f.Name, constants.TaskDecoding, constants.ProgressParsed)
	decoded, err := p.decoder.Decode(raw)
	if err != nil {
		p.logger.Error("pipeline.decode.failed", "file", f.Name, "error", err)
		p.tasks.Fail(f.Name, err.Error())
		return nil, err
	}

	p.tasks.Advance(f.Name, constants.TaskPersisting, constants.ProgressParsed)
	rec := assembler.Assemble(f.Name, decoded)
	if stored, err := p.store.Upsert(ctx, rec); err != nil {
		// best-effort relative to display: the extracted data is still
		// worth showing, so the task completes and the record stays
		// unpersisted in the working set
		p.logger.Warn("pipeline.persist.failed", "file", f.Name, "record_id", rec.ID, "error", err)
	} else {
		rec = stored
	}

	p.tasks.Complete(f.Name)

	p.mu.Lock()
	p.fresh = append([]entity.Record{rec}, p.fresh...)
	p.mu.Unlock()

	p.logger.Info("pipeline.file.done",
		"file", f.Name,
		"record_id", rec.ID,
		"persisted", rec.Persisted,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &rec, nil
}
