package sentimentoor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// DefaultMaxPages bounds a single paginated fetch against an upstream that
// never stops returning cursors.
const DefaultMaxPages = 10000

// Request describes the seed request of a paginated fetch.
type Request struct {
	// Endpoint is the operation name, used for rate limiting and errors.
	Endpoint string
	// URL is the full seed URL, including any query string.
	URL string
	// Logger receives per-page debug records. Nil discards them.
	Logger *slog.Logger
}

// Getter performs one authorized GET and returns the raw response body.
type Getter interface {
	Get(ctx context.Context, endpoint, url string) ([]byte, error)
}

// DecodeFunc parses one raw response body into a page of T.
type DecodeFunc[T any] func(body []byte) (*Page[T], error)

// FetchAll drives a cursor-paginated endpoint to exhaustion and returns every
// item in page order. Any fetch or decode failure aborts the whole call.
// maxPages <= 0 means DefaultMaxPages.
func FetchAll[T any](ctx context.Context, g Getter, req Request, decode DecodeFunc[T], maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	logger := req.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var items []T
	pageURL := req.URL
	for pages := 0; ; pages++ {
		if pages >= maxPages {
			return nil, fmt.Errorf("%s: %w: stopped after %d pages of %s", req.Endpoint, ErrPageLimit, maxPages, req.URL)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := g.Get(ctx, req.Endpoint, pageURL)
		if err != nil {
			return nil, err
		}

		page, err := decode(body)
		if err != nil {
			return nil, &DecodeError{URL: pageURL, Body: truncateBytes(body, 500), Err: err}
		}
		items = append(items, page.Items...)

		logger.Debug("page fetched",
			slog.String("endpoint", req.Endpoint),
			slog.Int("page", pages+1),
			slog.Int("result_count", page.ResultCount),
			slog.Bool("has_next", page.NextCursor != ""))

		if page.NextCursor == "" {
			return items, nil
		}
		pageURL = nextPageURL(req.URL, page.NextCursor)
	}
}

// nextPageURL attaches the cursor to the seed URL as pagination_token.
func nextPageURL(base, cursor string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "pagination_token=" + url.QueryEscape(cursor)
}
