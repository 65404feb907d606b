package catalog

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/bogem/id3v2"
)

var audioExtensions = []string{".mp3", ".m4a", ".aac", ".wav", ".flac", ".ogg"}

// LocalLibrary serves tracks from a folder of audio files so ingestion and
// prediction work offline. Track ids are file base names without the
// extension; titles and artists come from ID3 tags when present.
type LocalLibrary struct {
	dir    string
	logger logging.Logger
}

var _ Searcher = (*LocalLibrary)(nil)

// NewLocalLibrary creates a library rooted at dir
func NewLocalLibrary(dir string) *LocalLibrary {
	return &LocalLibrary{
		dir: dir,
		logger: logging.WithFields(logging.Fields{
			"component": "local_library",
			"dir":       dir,
		}),
	}
}

// List returns every audio file in the folder, sorted by file name
func (l *LocalLibrary) List(ctx context.Context) ([]Track, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read library: %w", ErrRequestFailed, err)
	}

	var tracks []Track
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		tracks = append(tracks, l.trackFor(filepath.Join(l.dir, entry.Name())))
	}

	return tracks, nil
}

// Search matches query case-insensitively against title, artist and id
func (l *LocalLibrary) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	tracks, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var matches []Track
	for _, t := range tracks {
		if limit > 0 && len(matches) == limit {
			break
		}
		haystack := strings.ToLower(t.Title + " " + t.Artist + " " + t.ID)
		if query == "" || strings.Contains(haystack, query) {
			matches = append(matches, t)
		}
	}

	return matches, nil
}

// Lookup returns the track whose id is id
func (l *LocalLibrary) Lookup(ctx context.Context, id string) (Track, error) {
	tracks, err := l.List(ctx)
	if err != nil {
		return Track{}, err
	}

	for _, t := range tracks {
		if t.ID == id {
			return t, nil
		}
	}
	return Track{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (l *LocalLibrary) trackFor(path string) Track {
	base := filepath.Base(path)
	track := Track{
		ID:         strings.TrimSuffix(base, filepath.Ext(base)),
		PreviewURL: (&url.URL{Scheme: "file", Path: path}).String(),
	}
	track.Title = track.ID

	title, artist, err := ReadTags(path)
	if err != nil {
		l.logger.Debug("No readable tags", logging.Fields{"file": base, "error": err.Error()})
		return track
	}
	if title != "" {
		track.Title = title
	}
	track.Artist = artist

	return track
}

// ReadTags returns the ID3 title and artist of an audio file. Files
// without a tag yield empty strings and no error.
func ReadTags(path string) (title, artist string, err error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return "", "", fmt.Errorf("id3 open error: %w", err)
	}
	defer tag.Close()

	return strings.TrimSpace(tag.Title()), strings.TrimSpace(tag.Artist()), nil
}
