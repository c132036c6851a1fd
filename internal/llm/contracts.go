package llm

import "context"

// FieldParser is the interface the pipeline depends on: ordered page texts
// plus the wanted column list in, raw response text out. The response is
// expected to carry a fenced ```json block; the decoder owns that contract.
type FieldParser interface {
	Parse(ctx context.Context, pages []string, columns []string) (string, error)
}
