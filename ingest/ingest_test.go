package ingest

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/RyanBlaney/sonido-gusto/transcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

type fakeSearcher struct {
	tracks  map[string][]catalog.Track
	queries []string
	limits  []int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]catalog.Track, error) {
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	tracks, ok := f.tracks[query]
	if !ok {
		return nil, catalog.ErrRequestFailed
	}
	return tracks, nil
}

func (f *fakeSearcher) Lookup(ctx context.Context, id string) (catalog.Track, error) {
	return catalog.Track{}, catalog.ErrNotFound
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, track catalog.Track) (string, error) {
	if !track.HasPreview() {
		return "", errors.New("no preview")
	}
	return "/tmp/" + track.ID, nil
}

// fakeExtractor fails for paths listed in broken
type fakeExtractor struct {
	broken map[string]bool
}

func (f fakeExtractor) ExtractFile(ctx context.Context, path string) (features.Record, error) {
	if f.broken[path] {
		return nil, transcode.ErrDecodeFailed
	}
	return features.Record{"tempo": 120}, nil
}

func track(id string, preview bool) catalog.Track {
	t := catalog.Track{ID: id, Title: "song " + id}
	if preview {
		t.PreviewURL = "https://example.com/" + id + ".m4a"
	}
	return t
}

func quick() *Config {
	return &Config{TracksPerArtist: 5}
}

func TestIngestArtistsContinuesPastFailures(t *testing.T) {
	searcher := &fakeSearcher{tracks: map[string][]catalog.Track{
		"Good": {track("1", true), track("2", false), track("3", true)},
		"Also": {track("4", true)},
	}}
	extractor := fakeExtractor{broken: map[string]bool{"/tmp/3": true}}
	ingestor := NewIngestor(searcher, fakeFetcher{}, extractor, quick())

	results, err := ingestor.IngestArtists(context.Background(), []string{"Good", "Missing", "Also"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Good", "Missing", "Also"}, searcher.queries)
	assert.Equal(t, []int{5, 5, 5}, searcher.limits)
	require.Len(t, results, 5)

	summary := Fold(results)
	assert.Equal(t, 2, summary.Processed())
	assert.Len(t, summary.Failures, 3)
	assert.Equal(t, "1", summary.Dataset.Rows[0].Track.ID)
	assert.Equal(t, "4", summary.Dataset.Rows[1].Track.ID)
	assert.Equal(t, []int{1, 1}, summary.Dataset.Labels())

	assert.ErrorIs(t, summary.Failures[1].Err, transcode.ErrDecodeFailed)
	assert.ErrorIs(t, summary.Failures[2].Err, catalog.ErrRequestFailed)
	assert.Equal(t, "Missing", summary.Failures[2].Track.Artist)
}

func TestIngestTracksLabels(t *testing.T) {
	ingestor := NewIngestor(&fakeSearcher{}, fakeFetcher{}, fakeExtractor{}, quick())

	results, err := ingestor.IngestTracks(context.Background(), []catalog.Track{track("a", true), track("b", true)}, 0)
	require.NoError(t, err)

	summary := Fold(results)
	assert.Equal(t, 2, summary.Processed())
	assert.Equal(t, []int{0, 0}, summary.Dataset.Labels())
	assert.Empty(t, summary.Failures)
}

func TestIngestStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := quick()
	config.Delay = 1 << 40
	ingestor := NewIngestor(&fakeSearcher{}, fakeFetcher{}, fakeExtractor{}, config)

	results, err := ingestor.IngestTracks(ctx, []catalog.Track{track("a", true)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestPauseHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := quick()
	config.Delay = 1 << 40
	ingestor := NewIngestor(&fakeSearcher{}, fakeFetcher{}, fakeExtractor{}, config)
	assert.ErrorIs(t, ingestor.pause(ctx), context.Canceled)
}

func TestFoldEmpty(t *testing.T) {
	summary := Fold(nil)
	assert.Equal(t, 0, summary.Processed())
	assert.Empty(t, summary.Failures)
}

func TestCuratedListsHaveNoDuplicates(t *testing.T) {
	for _, list := range [][]string{DefaultLikedArtists, DefaultDislikedArtists} {
		seen := map[string]bool{}
		for _, artist := range list {
			assert.False(t, seen[artist], artist)
			seen[artist] = true
		}
	}
}
