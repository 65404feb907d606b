package catalog

import (
	"context"
	"errors"
)

var (
	// ErrRequestFailed wraps transport errors and non-success responses
	ErrRequestFailed = errors.New("catalog request failed")
	// ErrNotFound is returned by Lookup when no track has the id
	ErrNotFound = errors.New("track not found")
)

// Track is the catalog's view of a song. An empty PreviewURL means the
// catalog has no preview for it.
type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	ArtworkURL string `json:"artwork_url,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// HasPreview reports whether the track can be fetched for analysis
func (t Track) HasPreview() bool {
	return t.PreviewURL != ""
}

// Searcher finds tracks by free-text query or id
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Track, error)
	Lookup(ctx context.Context, id string) (Track, error)
}
