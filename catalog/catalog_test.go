package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

const searchBody = `{"resultCount":3,"results":[
 {"kind":"song","trackId":1440857781,"trackName":"Sicko Mode","artistName":"Travis Scott","artworkUrl100":"https://img/1.jpg","previewUrl":"https://audio/1.m4a"},
 {"wrapperType":"collection","collectionId":99},
 {"kind":"song","trackId":42,"trackName":"No Preview","artistName":"Someone"}
]}`

func testClient(url string) *ITunesClient {
	return NewITunesClient(&Config{BaseURL: url, Timeout: 5 * time.Second, MaxRetries: 3, RetryBackoff: time.Millisecond}, nil)
}

func TestSearchMapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "travis scott", r.URL.Query().Get("term"))
		assert.Equal(t, "music", r.URL.Query().Get("media"))
		assert.Equal(t, "song", r.URL.Query().Get("entity"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	tracks, err := testClient(server.URL).Search(context.Background(), "travis scott", 5)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, Track{
		ID:         "1440857781",
		Title:      "Sicko Mode",
		Artist:     "Travis Scott",
		ArtworkURL: "https://img/1.jpg",
		PreviewURL: "https://audio/1.m4a",
	}, tracks[0])
	assert.False(t, tracks[1].HasPreview())
}

func TestLookupNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup", r.URL.Path)
		_, _ = w.Write([]byte(`{"resultCount":0,"results":[]}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Lookup(context.Background(), "123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	tracks, err := testClient(server.URL).Search(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Search(context.Background(), "x", 5)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Search(context.Background(), "x", 5)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.EqualValues(t, 1, calls.Load())
}

func TestInvalidJSONIsRequestFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Search(context.Background(), "x", 5)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Zero(t, parseRetryAfter(resp))

	resp.Header.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, parseRetryAfter(resp))

	resp.Header.Set("Retry-After", time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat))
	assert.Zero(t, parseRetryAfter(resp))
}

func TestSleepWithContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepWithContext(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
}

func writeTagged(t *testing.T, path, title, artist string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	tag := id3v2.NewEmptyTag()
	tag.SetTitle(title)
	tag.SetArtist(artist)
	_, err = tag.WriteTo(f)
	require.NoError(t, err)
}

func TestLocalLibrary(t *testing.T) {
	dir := t.TempDir()
	writeTagged(t, filepath.Join(dir, "b-side.mp3"), "Humble", "Kendrick Lamar")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-untagged.mp3"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	lib := NewLocalLibrary(dir)
	tracks, err := lib.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "a-untagged", tracks[0].ID)
	assert.Equal(t, "a-untagged", tracks[0].Title)
	assert.Equal(t, "Humble", tracks[1].Title)
	assert.Equal(t, "Kendrick Lamar", tracks[1].Artist)
	assert.Equal(t, "file://"+filepath.Join(dir, "b-side.mp3"), tracks[1].PreviewURL)

	found, err := lib.Search(context.Background(), "kendrick", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b-side", found[0].ID)

	got, err := lib.Lookup(context.Background(), "b-side")
	require.NoError(t, err)
	assert.Equal(t, "Humble", got.Title)

	_, err = lib.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalLibraryMissingDir(t *testing.T) {
	_, err := NewLocalLibrary(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
}
