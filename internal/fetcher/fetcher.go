// Package fetcher downloads remote artifacts and decodes JSON, CSV, and XLSX
// payloads for the dashboard's data collaborators.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
