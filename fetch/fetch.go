package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// ErrFetchFailed is returned when a preview cannot be downloaded
var ErrFetchFailed = errors.New("fetch failed")

// Config configures preview downloads
type Config struct {
	TempDir  string        `json:"temp_dir"`
	Timeout  time.Duration `json:"timeout"`
	MaxBytes int64         `json:"max_bytes"` // 0 = unlimited
}

func DefaultConfig() *Config {
	return &Config{
		TempDir:  filepath.Join(os.TempDir(), "gusto"),
		Timeout:  30 * time.Second,
		MaxBytes: 20 << 20,
	}
}

// Fetcher downloads track previews into a temp directory. Every call gets
// its own file, so concurrent fetches of one track never collide.
type Fetcher struct {
	config     *Config
	httpClient *http.Client
	logger     logging.Logger
}

func NewFetcher(config *Config, httpClient *http.Client) *Fetcher {
	if config == nil {
		config = DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Fetcher{
		config:     config,
		httpClient: httpClient,
		logger: logging.WithFields(logging.Fields{
			"component": "fetch",
		}),
	}
}

// Fetch stores the track's preview as <trackID>-<uuid><ext> under the temp
// directory and returns the path. The caller owns the file. file:// URLs
// are copied, never handed out directly.
func (f *Fetcher) Fetch(ctx context.Context, track catalog.Track) (string, error) {
	logger := f.logger.WithFields(logging.Fields{
		"function": "Fetch",
		"track_id": track.ID,
	})

	if !track.HasPreview() {
		return "", fmt.Errorf("%w: track %s has no preview", ErrFetchFailed, track.ID)
	}

	u, err := url.Parse(track.PreviewURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid preview url %q: %w", ErrFetchFailed, track.PreviewURL, err)
	}

	if err := os.MkdirAll(f.config.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create temp dir: %w", ErrFetchFailed, err)
	}

	dest := filepath.Join(f.config.TempDir, f.fileName(track.ID, u))

	var body io.ReadCloser
	switch u.Scheme {
	case "file":
		body, err = os.Open(u.Path)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
	case "http", "https":
		body, err = f.get(ctx, u.String())
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrFetchFailed, u.Scheme)
	}
	defer body.Close()

	written, err := f.save(dest, body)
	if err != nil {
		os.Remove(dest)
		return "", err
	}

	logger.Debug("Preview fetched", logging.Fields{
		"path": dest,
		"size": humanize.Bytes(uint64(written)),
	})

	return dest, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetchFailed, rawURL, resp.StatusCode)
	}

	return resp.Body, nil
}

func (f *Fetcher) save(dest string, body io.Reader) (int64, error) {
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer out.Close()

	reader := body
	if f.config.MaxBytes > 0 {
		reader = io.LimitReader(body, f.config.MaxBytes+1)
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		return written, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if f.config.MaxBytes > 0 && written > f.config.MaxBytes {
		return written, fmt.Errorf("%w: preview larger than %s", ErrFetchFailed, humanize.Bytes(uint64(f.config.MaxBytes)))
	}
	if written == 0 {
		return 0, fmt.Errorf("%w: empty preview", ErrFetchFailed)
	}

	return written, out.Sync()
}

// fileName keeps the source extension so decoders can sniff the container
func (f *Fetcher) fileName(trackID string, u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 5 {
		ext = ".m4a"
	}

	safeID := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, trackID)

	return fmt.Sprintf("%s-%s%s", safeID, uuid.NewString(), ext)
}
