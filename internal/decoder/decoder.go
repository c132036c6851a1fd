package decoder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
	"github.com/Jetrug/companysheet/internal/entity"
)

const fenceTag = "```json"

// Decoder turns a raw LLM response into per-field value sequences. Decoding
// is pure: no network, no storage, safe to re-run.
type Decoder struct {
	Logger *slog.Logger
}

func New(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{Logger: logger}
}

// Decode locates the fenced ```json block in raw, parses it, and normalizes
// every schema field to a (possibly empty, never nil) sequence of values.
//
// Errors wrap common.ErrNoStructuredBlock when no fenced block is present,
// and common.ErrMalformedPayload (carrying the underlying parse error) when
// the block's inner text is not valid JSON.
func (d *Decoder) Decode(raw string) (map[constants.Field][]entity.FieldValue, error) {
	inner, err := extractFencedBlock(raw)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(inner), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedPayload, err)
	}

	// Advisory shape check. The payload is untrusted; a mismatch is logged
	// and normalization proceeds leniently field by field.
	if err := ValidatePayloadShape([]byte(inner)); err != nil {
		d.Logger.Warn("decoder.schema_mismatch", "error", err)
	}

	out := make(map[constants.Field][]entity.FieldValue, len(constants.Fields()))
	for _, f := range constants.Fields() {
		out[f] = []entity.FieldValue{}
	}

	for key, v := range payload {
		field, ok := constants.Canonicalize(key)
		if !ok {
			d.Logger.Warn("decoder.unknown_field", "key", key)
			continue
		}
		out[field] = append(out[field], normalize(v)...)
	}

	return out, nil
}

// extractFencedBlock returns the inner text of the ```json fence.
func extractFencedBlock(raw string) (string, error) {
	start := strings.Index(raw, fenceTag)
	if start < 0 {
		return "", fmt.Errorf("%w: expected a %s fence", common.ErrNoStructuredBlock, fenceTag)
	}
	rest := raw[start+len(fenceTag):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", fmt.Errorf("%w: fence never closed", common.ErrNoStructuredBlock)
	}
	return strings.TrimSpace(rest[:end]), nil
}

// normalize flattens one payload member into field values:
// object-with-value, array of such objects or scalars, or a bare scalar.
// Anything unusable yields no values rather than failing the record.
func normalize(v any) []entity.FieldValue {
	switch t := v.(type) {
	case []any:
		out := make([]entity.FieldValue, 0, len(t))
		for _, el := range t {
			out = append(out, normalize(el)...)
		}
		return out
	case map[string]any:
		raw, ok := t["value"]
		if !ok || raw == nil {
			return nil
		}
		fv := entity.FieldValue{
			Value:       scalarString(raw),
			SourcePages: intSlice(t["source"]),
		}
		if c, ok := t["confidence"].(float64); ok {
			fv.Confidence = float32(c)
		}
		if g, ok := t["guess"].(bool); ok {
			fv.Guess = g
		}
		return []entity.FieldValue{fv}
	case nil:
		return nil
	default:
		return []entity.FieldValue{{Value: scalarString(v)}}
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		// nested structure where a scalar was expected; keep it legible
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// intSlice returns v as 0-based page indices, or nil unless v is an array
// whose every element is an integer.
func intSlice(v any) []int {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, el := range arr {
		f, ok := el.(float64)
		if !ok || f != math.Trunc(f) {
			return nil
		}
		out = append(out, int(f))
	}
	return out
}
