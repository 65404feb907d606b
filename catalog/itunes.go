package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/tidwall/gjson"
)

// Config configures the iTunes Search API client
type Config struct {
	BaseURL      string        `json:"base_url"`
	Timeout      time.Duration `json:"timeout"`
	MaxRetries   int           `json:"max_retries"`
	RetryBackoff time.Duration `json:"retry_backoff"` // doubled on every attempt
}

// DefaultConfig points at the public iTunes Search API
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://itunes.apple.com",
		Timeout:      15 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// ITunesClient searches songs through the iTunes Search API. It needs no
// credentials.
type ITunesClient struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
	logger      logging.Logger
}

var _ Searcher = (*ITunesClient)(nil)

// NewITunesClient creates a client; a nil httpClient gets one with the
// configured timeout
func NewITunesClient(config *Config, httpClient *http.Client) *ITunesClient {
	if config == nil {
		config = DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &ITunesClient{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		maxRetries:  config.MaxRetries,
		baseBackoff: config.RetryBackoff,
		logger: logging.WithFields(logging.Fields{
			"component": "itunes_client",
		}),
	}
}

// Search returns up to limit songs matching query, in catalog order
func (c *ITunesClient) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}

	tracks := parseResults(body)

	c.logger.Debug("Search completed", logging.Fields{
		"query":   query,
		"results": len(tracks),
	})

	return tracks, nil
}

// Lookup fetches one song by its iTunes track id
func (c *ITunesClient) Lookup(ctx context.Context, id string) (Track, error) {
	params := url.Values{}
	params.Set("id", id)

	body, err := c.get(ctx, "/lookup", params)
	if err != nil {
		return Track{}, err
	}

	tracks := parseResults(body)
	if len(tracks) == 0 {
		return Track{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tracks[0], nil
}

func (c *ITunesClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrRequestFailed, err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrRequestFailed, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s returned invalid JSON", ErrRequestFailed, path)
	}

	return body, nil
}

// parseResults maps the "results" array, skipping entries that are not
// songs (lookups can return collections and artists)
func parseResults(body []byte) []Track {
	var tracks []Track

	gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
		if kind := item.Get("kind").String(); kind != "" && kind != "song" {
			return true
		}

		id := item.Get("trackId")
		if !id.Exists() {
			return true
		}

		tracks = append(tracks, Track{
			ID:         id.String(),
			Title:      item.Get("trackName").String(),
			Artist:     item.Get("artistName").String(),
			ArtworkURL: item.Get("artworkUrl100").String(),
			PreviewURL: item.Get("previewUrl").String(),
		})
		return true
	})

	return tracks
}
