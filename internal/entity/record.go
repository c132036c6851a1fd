package entity

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/constants"
)

// FieldValue is one extracted datum with its provenance. SourcePages are the
// 0-based page indices the parser attributed the value to; display layers add 1.
type FieldValue struct {
	Value       string  `json:"value"`
	SourcePages []int   `json:"source,omitempty"`
	Confidence  float32 `json:"confidence,omitempty"`
	Guess       bool    `json:"guess,omitempty"`
}

// Record is one processed document: identity plus the full extracted field
// set. A field maps to zero or more candidate values; the first element is
// canonical for narrow display.
type Record struct {
	ID        uuid.UUID                        `json:"id"`
	FileName  string                           `json:"fileName"`
	Fields    map[constants.Field][]FieldValue `json:"fields"`
	Persisted bool                             `json:"persisted"`
	CreatedAt time.Time                        `json:"createdAt"`
	UpdatedAt time.Time                        `json:"updatedAt"`
}

// Canonical returns the first extracted value for f, or nil when the field
// was not extracted.
func (r *Record) Canonical(f constants.Field) *FieldValue {
	vs := r.Fields[f]
	if len(vs) == 0 {
		return nil
	}
	return &vs[0]
}

// DisplayName is the file name with its extension stripped. Storage keeps
// the extension; only display drops it.
func (r *Record) DisplayName() string {
	return strings.TrimSuffix(r.FileName, filepath.Ext(r.FileName))
}

// Clone returns a deep copy; stores hand these out so callers can't reach
// shared field slices.
func (r *Record) Clone() Record {
	out := *r
	out.Fields = make(map[constants.Field][]FieldValue, len(r.Fields))
	for f, vs := range r.Fields {
		cp := make([]FieldValue, len(vs))
		for i, v := range vs {
			cp[i] = v
			if v.SourcePages != nil {
				cp[i].SourcePages = append([]int(nil), v.SourcePages...)
			}
		}
		out.Fields[f] = cp
	}
	return out
}
