package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/entity"
)

// RecordStore persists processed company records. Upsert is keyed by record
// id; List returns newest-first.
type RecordStore interface {
	List(ctx context.Context) ([]entity.Record, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Record, error)
	Upsert(ctx context.Context, rec entity.Record) (entity.Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
	Close() error
}

// fieldColumns is the stable column order shared by the SQL stores. Each
// field column stores the JSON-encoded FieldValue array, NULL when the field
// was not extracted.
var fieldColumns = constants.AsStringSlice()

// encodeField serializes one field's value sequence for a SQL column.
func encodeField(vs []entity.FieldValue) (*string, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vs)
	if err != nil {
		return nil, fmt.Errorf("encode field values: %w", err)
	}
	s := string(b)
	return &s, nil
}

// decodeField reverses encodeField; NULL and malformed cells both come back
// as an empty sequence so a bad row never poisons a whole List.
func decodeField(cell *string) []entity.FieldValue {
	if cell == nil || *cell == "" {
		return []entity.FieldValue{}
	}
	var vs []entity.FieldValue
	if err := json.Unmarshal([]byte(*cell), &vs); err != nil {
		return []entity.FieldValue{}
	}
	return vs
}
