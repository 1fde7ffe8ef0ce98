package port

import "context"

// PageExtractor turns raw PDF bytes into one text block per page.
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}
