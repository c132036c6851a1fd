package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/extract"
	"github.com/Jetrug/companysheet/internal/pipeline"
)

// readUpload drains one multipart part, enforcing the configured size cap.
func (s *Server) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	limit := int64(s.maxUploadMB) << 20
	if fh.Size > limit {
		return nil, fmt.Errorf("%w: %s exceeds %dMB", common.ErrIntakeRejected, fh.Filename, s.maxUploadMB)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrInvalidInput, fh.Filename, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrInvalidInput, fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %dMB", common.ErrIntakeRejected, fh.Filename, s.maxUploadMB)
	}
	return data, nil
}

// handleExtract validates one uploaded PDF and returns its page texts.
func (s *Server) handleExtract(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: missing file part", common.ErrInvalidInput))
		return
	}
	data, err := s.readUpload(fh)
	if err != nil {
		s.respondError(c, err)
		return
	}
	pages, err := extract.ValidateIntake(fh.Filename, data)
	if err != nil {
		s.respondError(c, err)
		return
	}
	texts, err := s.extractor.Extract(c.Request.Context(), fh.Filename, data)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fileName": fh.Filename,
		"pages":    pages,
		"strings":  texts,
	})
}

type parseRequest struct {
	Strings []string `json:"strings"`
	Columns []string `json:"columns"`
}

// handleParse sends page texts to the language model and echoes its raw
// response text; decoding is the caller's business here.
func (s *Server) handleParse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	if len(req.Strings) == 0 {
		s.respondError(c, fmt.Errorf("%w: strings must not be empty", common.ErrInvalidInput))
		return
	}
	columns := req.Columns
	if len(columns) == 0 {
		columns = constants.AsStringSlice()
	}
	raw, err := s.parser.Parse(c.Request.Context(), req.Strings, columns)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": raw})
}

// handleProcess accepts a multipart batch under "files", rejects what fails
// intake, and starts the pipeline for the rest.
func (s *Server) handleProcess(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	parts := form.File["files"]
	if len(parts) == 0 {
		s.respondError(c, fmt.Errorf("%w: no files uploaded", common.ErrInvalidInput))
		return
	}

	type rejection struct {
		FileName string `json:"fileName"`
		Error    string `json:"error"`
	}
	accepted := make([]pipeline.UploadFile, 0, len(parts))
	rejected := make([]rejection, 0)
	for _, fh := range parts {
		data, err := s.readUpload(fh)
		if err == nil {
			_, err = extract.ValidateIntake(fh.Filename, data)
		}
		if err != nil {
			s.logger.Warn("http.process.rejected", "file", fh.Filename, "error", err)
			rejected = append(rejected, rejection{FileName: fh.Filename, Error: err.Error()})
			continue
		}
		accepted = append(accepted, pipeline.UploadFile{Name: fh.Filename, Data: data})
	}

	tasks := s.processor.Submit(accepted)
	c.JSON(http.StatusAccepted, gin.H{
		"tasks":    tasks,
		"rejected": rejected,
	})
}

func (s *Server) handleTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": s.processor.Tasks()})
}

func (s *Server) handleRemoveTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: task id must be a UUID", common.ErrInvalidInput))
		return
	}
	if err := s.processor.RemoveTask(id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
