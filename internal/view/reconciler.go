package view

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/assembler"
	"github.com/Jetrug/companysheet/internal/entity"
)

// Direction orders a sort.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Query is the immutable view configuration: a free-text filter plus an
// optional sort key. The zero value means "everything, storage order".
type Query struct {
	Search  string
	SortKey constants.Field
	SortDir Direction
}

// Toggle applies the sort-header click semantics: the active ascending key
// flips to descending, anything else resets to ascending on that key.
func Toggle(q Query, key constants.Field) Query {
	next := Query{Search: q.Search, SortKey: key, SortDir: Ascending}
	if q.SortKey == key && q.SortDir == Ascending {
		next.SortDir = Descending
	}
	return next
}

// Merge combines freshly produced records with the persisted list. Fresh
// records come first and win on id collisions (a record that was just
// reprocessed shadows its stored version).
func Merge(fresh, persisted []entity.Record) []entity.Record {
	out := make([]entity.Record, 0, len(fresh)+len(persisted))
	seen := make(map[string]struct{}, len(fresh))
	for _, r := range fresh {
		out = append(out, r)
		seen[r.ID.String()] = struct{}{}
	}
	for _, r := range persisted {
		if _, ok := seen[r.ID.String()]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Project filters and sorts without touching the input slice. Pure and
// re-computable; callers re-derive it on every records/query change.
func Project(records []entity.Record, q Query) []entity.Record {
	out := make([]entity.Record, 0, len(records))
	term := strings.ToLower(strings.TrimSpace(q.Search))
	for _, r := range records {
		if term == "" || matches(r, term) {
			out = append(out, r)
		}
	}

	if q.SortKey == "" {
		return out
	}

	col := collate.New(language.English, collate.Numeric)
	desc := q.SortDir == Descending
	sort.SliceStable(out, func(i, j int) bool {
		return compare(col, &out[i], &out[j], q.SortKey, desc) < 0
	})
	return out
}

// matches reports whether term occurs case-insensitively in any exposed
// string of the record: id, file name, or a canonical field value.
func matches(r entity.Record, term string) bool {
	for _, v := range assembler.Flatten(r) {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// compare orders by the canonical display value of key. Nulls are anchored:
// before non-nulls ascending, after them descending; they are never compared
// lexically against values.
func compare(col *collate.Collator, a, b *entity.Record, key constants.Field, desc bool) int {
	av, bv := a.Canonical(key), b.Canonical(key)
	switch {
	case av == nil && bv == nil:
		return 0
	case av == nil:
		if desc {
			return 1
		}
		return -1
	case bv == nil:
		if desc {
			return -1
		}
		return 1
	}

	r := col.CompareString(av.Value, bv.Value)
	if desc {
		return -r
	}
	return r
}
