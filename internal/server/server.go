package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/export"
	"github.com/Jetrug/companysheet/internal/extract"
	"github.com/Jetrug/companysheet/internal/llm"
	"github.com/Jetrug/companysheet/internal/pipeline"
	"github.com/Jetrug/companysheet/internal/store"
)

// Server is the HTTP surface over the pipeline and the record store.
type Server struct {
	logger      *slog.Logger
	processor   *pipeline.Processor
	extractor   extract.PageExtractor
	parser      llm.FieldParser
	store       store.RecordStore
	exporter    *export.Service
	allowOrigin string
	maxUploadMB int
}

func New(
	logger *slog.Logger,
	proc *pipeline.Processor,
	extractor extract.PageExtractor,
	parser llm.FieldParser,
	st store.RecordStore,
	exporter *export.Service,
	srvCfg common.ServerConfig,
	maxUploadMB int,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadMB < 1 {
		maxUploadMB = 1
	}
	return &Server{
		logger:      logger,
		processor:   proc,
		extractor:   extractor,
		parser:      parser,
		store:       st,
		exporter:    exporter,
		allowOrigin: srvCfg.AllowOrigin,
		maxUploadMB: maxUploadMB,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.cors())
	r.MaxMultipartMemory = int64(s.maxUploadMB) << 20

	r.GET("/", s.handleRoot)

	api := r.Group("/api")
	api.POST("/extract", s.handleExtract)
	api.POST("/parse", s.handleParse)
	api.POST("/process", s.handleProcess)
	api.GET("/tasks", s.handleTasks)
	api.DELETE("/tasks/:id", s.handleRemoveTask)

	api.GET("/records", s.handleListRecords)
	api.POST("/records", s.handleUpsertRecord)
	api.GET("/records/export", s.handleExportRecords)
	api.GET("/records/:id", s.handleGetRecord)
	api.DELETE("/records/:id", s.handleDeleteRecord)

	return r
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", s.allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Import files to extract and organize data"})
}

// respondError maps domain sentinels onto HTTP statuses; everything
// unrecognized is a 500 with the error text.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrIntakeRejected):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateTask):
		status = http.StatusConflict
	case errors.Is(err, common.ErrExtractionFailed), errors.Is(err, common.ErrParseFailed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("http.request.failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
