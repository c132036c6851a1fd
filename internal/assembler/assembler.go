package assembler

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/entity"
)

// Assemble combines a decoded field map into a Record with a fresh identity.
// The decoded sequences are copied verbatim (multi-value candidates survive);
// decoded itself is never mutated.
func Assemble(fileName string, decoded map[constants.Field][]entity.FieldValue) entity.Record {
	now := time.Now().UTC()
	rec := entity.Record{
		ID:        uuid.New(),
		FileName:  fileName,
		Fields:    make(map[constants.Field][]entity.FieldValue, len(constants.Fields())),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, f := range constants.Fields() {
		vs := decoded[f]
		cp := make([]entity.FieldValue, len(vs))
		for i, v := range vs {
			cp[i] = v
			if v.SourcePages != nil {
				cp[i].SourcePages = append([]int(nil), v.SourcePages...)
			}
		}
		rec.Fields[f] = cp
	}
	return rec
}

// PageList formats 0-based page indices for humans: [2, 4] -> "Page(s) 3, 5".
// Empty input yields "".
func PageList(pages []int) string {
	if len(pages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Page(s) ")
	for i, p := range pages {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(p + 1))
	}
	return b.String()
}

// Flatten projects a record onto the single-value wire shape: per field the
// canonical value (or nil) plus a "<field>Source" sibling holding the
// human-readable page list (or nil). Used by list responses and the search
// filter; the canonical array shape stays authoritative in storage.
func Flatten(rec entity.Record) map[string]any {
	out := map[string]any{
		"id":       rec.ID.String(),
		"fileName": rec.FileName,
	}
	for _, f := range constants.Fields() {
		key := string(f)
		canonical := rec.Canonical(f)
		if canonical == nil {
			out[key] = nil
			out[key+"Source"] = nil
			continue
		}
		out[key] = canonical.Value
		if src := PageList(canonical.SourcePages); src != "" {
			out[key+"Source"] = src
		} else {
			out[key+"Source"] = nil
		}
	}
	return out
}
