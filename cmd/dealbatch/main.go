package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/export"
	"github.com/Jetrug/companysheet/internal/extract"
	"github.com/Jetrug/companysheet/internal/llm/openai"
	"github.com/Jetrug/companysheet/internal/pipeline"
	"github.com/Jetrug/companysheet/internal/store"
	"github.com/Jetrug/companysheet/internal/view"
)

func main() {
	var (
		dir   = flag.String("dir", "", "directory of PDFs to process (required)")
		out   = flag.String("out", "", "output XLSX path (default: <dir parent>/companies.xlsx)")
		inmem = flag.Bool("inmem", false, "use the in-memory store instead of DB_URL")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *dir == "" {
		logger.Error("--dir is required")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "companies.xlsx")
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Store.DSN = ""
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("opening store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	extractor := extract.NewClient(extract.ClientConfig{
		BaseURL: cfg.Extractor.BaseURL,
		Timeout: cfg.Extractor.Timeout,
	}, logger)
	parser := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	proc := pipeline.NewProcessor(logger, extractor, parser, nil, st, cfg.Pipeline.Concurrency)

	files, rejected := collectPDFs(logger, *dir)
	if len(files) == 0 {
		logger.Error("no processable PDFs found", "dir", *dir, "rejected", rejected)
		os.Exit(1)
	}
	logger.Info("starting batch", "dir", *dir, "files", len(files), "rejected", rejected)

	results := proc.ProcessBatch(ctx, files)
	processed, failures := 0, 0
	for _, res := range results {
		if res.Err != nil {
			logger.Error("file failed", "file", res.FileName, "error", res.Err)
			failures++
			continue
		}
		processed++
	}

	exporter := export.NewService(st, logger)
	xlsx, err := exporter.ExportRecordsXLSX(ctx, proc.FreshRecords(), view.Query{})
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("writing output", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"processed", processed,
		"failures", failures,
		"rejected", rejected,
		"output", *out,
	)
	if failures > 0 {
		os.Exit(1)
	}
}

// collectPDFs walks dir non-recursively, keeping files that pass intake.
func collectPDFs(logger *slog.Logger, dir string) ([]pipeline.UploadFile, int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Error("reading directory", "dir", dir, "error", err)
		return nil, 0
	}

	var files []pipeline.UploadFile
	rejected := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", path, "error", err)
			rejected++
			continue
		}
		if _, err := extract.ValidateIntake(e.Name(), data); err != nil {
			logger.Warn("skipping rejected file", "path", path, "error", err)
			rejected++
			continue
		}
		files = append(files, pipeline.UploadFile{Name: e.Name(), Data: data})
	}
	return files, rejected
}
