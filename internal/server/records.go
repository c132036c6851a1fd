package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/assembler"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
	"github.com/Jetrug/companysheet/internal/view"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// recordPayload is the wire shape of one record: the flattened single-value
// projection for table rendering plus the canonical field arrays.
func recordPayload(rec entity.Record) map[string]any {
	out := assembler.Flatten(rec)
	out["fields"] = rec.Fields
	out["persisted"] = rec.Persisted
	out["createdAt"] = rec.CreatedAt
	out["updatedAt"] = rec.UpdatedAt
	return out
}

// queryFromRequest reads search/sortKey/sortDir. An unknown sortKey is an
// error rather than a silent no-op sort.
func queryFromRequest(c *gin.Context) (view.Query, error) {
	q := view.Query{Search: c.Query("search")}
	if raw := c.Query("sortKey"); raw != "" {
		key, ok := constants.Canonicalize(raw)
		if !ok {
			return view.Query{}, fmt.Errorf("%w: unknown sortKey %q", common.ErrInvalidInput, raw)
		}
		q.SortKey = key
		q.SortDir = view.Ascending
	}
	switch dir := c.Query("sortDir"); dir {
	case "", string(view.Ascending):
	case string(view.Descending):
		q.SortDir = view.Descending
	default:
		return view.Query{}, fmt.Errorf("%w: sortDir must be asc or desc", common.ErrInvalidInput)
	}
	return q, nil
}

func (s *Server) handleListRecords(c *gin.Context) {
	q, err := queryFromRequest(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	persisted, err := s.store.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	recs := view.Project(view.Merge(s.processor.FreshRecords(), persisted), q)

	payload := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		payload = append(payload, recordPayload(rec))
	}
	c.JSON(http.StatusOK, gin.H{"records": payload})
}

type upsertRecordRequest struct {
	ID       string                         `json:"id"`
	FileName string                         `json:"fileName"`
	Fields   map[string][]entity.FieldValue `json:"fields"`
}

func (s *Server) handleUpsertRecord(c *gin.Context) {
	var req upsertRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	if req.FileName == "" {
		s.respondError(c, fmt.Errorf("%w: fileName is required", common.ErrInvalidInput))
		return
	}

	id := uuid.New()
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			s.respondError(c, fmt.Errorf("%w: id must be a UUID", common.ErrInvalidInput))
			return
		}
		id = parsed
	}

	fields := make(map[constants.Field][]entity.FieldValue, len(req.Fields))
	for raw, vs := range req.Fields {
		field, ok := constants.Canonicalize(raw)
		if !ok {
			s.respondError(c, fmt.Errorf("%w: unknown field %q", common.ErrInvalidInput, raw))
			return
		}
		fields[field] = vs
	}

	now := time.Now().UTC()
	rec := entity.Record{
		ID:        id,
		FileName:  req.FileName,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored, err := s.store.Upsert(c.Request.Context(), rec)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recordPayload(stored))
}

func (s *Server) handleGetRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: record id must be a UUID", common.ErrInvalidInput))
		return
	}
	rec, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recordPayload(rec))
}

func (s *Server) handleDeleteRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, fmt.Errorf("%w: record id must be a UUID", common.ErrInvalidInput))
		return
	}
	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportRecords(c *gin.Context) {
	q, err := queryFromRequest(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	xlsx, err := s.exporter.ExportRecordsXLSX(c.Request.Context(), s.processor.FreshRecords(), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	name := "companysheet-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, xlsx)
}
