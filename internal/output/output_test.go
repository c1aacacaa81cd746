package output

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetRGBA(2, 3, color.RGBA{R: 200, A: 255})
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"png", FormatPNG},
		{".PNG", FormatPNG},
		{"jpeg", FormatJPEG},
		{"jpg", FormatJPEG},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseFormat("avi")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRecorderWritesSequence(t *testing.T) {
	root := t.TempDir()
	start := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

	rec, err := NewRecorder(root, "png", 0, start)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "video-20240309-1405"), rec.Dir())

	for range 3 {
		_, err := rec.Save(testImage())
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(rec.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"frame_000000.png", "frame_000001.png", "frame_000002.png"}, names)

	f, err := os.Open(filepath.Join(rec.Dir(), "frame_000001.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())

	saved, failed := rec.Stats()
	assert.Equal(t, uint64(3), saved)
	assert.Equal(t, uint64(0), failed)
}

func TestRecorderSessionsInSameMinuteKeepFrames(t *testing.T) {
	root := t.TempDir()
	start := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)

	first, err := NewRecorder(root, "png", 0, start)
	require.NoError(t, err)
	firstPath, err := first.Save(testImage())
	require.NoError(t, err)
	before, err := os.ReadFile(firstPath)
	require.NoError(t, err)

	second, err := NewRecorder(root, "png", 0, start.Add(20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "video-20260102-0304-2"), second.Dir())
	secondPath, err := second.Save(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	require.NoError(t, err)
	assert.NotEqual(t, firstPath, secondPath)

	after, err := os.ReadFile(firstPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "earlier session's frame must survive")

	third, err := NewRecorder(root, "png", 0, start.Add(40*time.Second))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "video-20260102-0304-3"), third.Dir())
}

func TestRecorderCountsFailures(t *testing.T) {
	rec, err := NewRecorder(t.TempDir(), "jpg", 80, time.Now())
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(rec.Dir()))

	_, err = rec.Save(testImage())
	assert.Error(t, err)
	saved, failed := rec.Stats()
	assert.Equal(t, uint64(0), saved)
	assert.Equal(t, uint64(1), failed)
}

func TestSaveSnapshot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "shots")
	path, err := SaveSnapshot(root, "jpeg", 0, testImage(), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "snapshot-20240102-030405.jpg"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = jpeg.Decode(f)
	assert.NoError(t, err)
}

func newTestServer(t *testing.T) (*LiveServer, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}))
	live := NewLiveServer("127.0.0.1:0", 80, reg, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(live.Handler())
	t.Cleanup(srv.Close)
	return live, srv
}

func TestLiveSnapshot(t *testing.T) {
	live, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/snapshot.jpg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, live.Publish(testImage()))

	resp, err = http.Get(srv.URL + "/snapshot.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	img, err := jpeg.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
}

func TestLiveIndexAndMetrics(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "stream.mjpg")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "test_total")

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLiveMJPEGStream(t *testing.T) {
	live, srv := newTestServer(t)
	require.NoError(t, live.Publish(testImage()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream.mjpg", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/x-mixed-replace", mediaType)

	mr := multipart.NewReader(resp.Body, params["boundary"])
	part, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))
	_, err = jpeg.Decode(part)
	require.NoError(t, err)

	// a second frame arrives as the next part
	require.NoError(t, live.Publish(testImage()))
	part, err = mr.NextPart()
	require.NoError(t, err)
	_, err = jpeg.Decode(part)
	assert.NoError(t, err)
}

func TestLiveServerStart(t *testing.T) {
	live := NewLiveServer("127.0.0.1:0", 0, nil, slog.New(slog.DiscardHandler))
	assert.Empty(t, live.URL())
	require.NoError(t, live.Start(context.Background()))
	defer live.Close()

	assert.Regexp(t, `^http://127\.0\.0\.1:\d+/$`, live.URL())
	resp, err := http.Get(live.URL())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
