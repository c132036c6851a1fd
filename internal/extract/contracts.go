package extract

import "context"

// PageExtractor is the interface the pipeline depends on: file bytes in,
// ordered page texts out.
type PageExtractor interface {
	Extract(ctx context.Context, fileName string, data []byte) ([]string, error)
}
