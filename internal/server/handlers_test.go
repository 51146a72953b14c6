package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast-api/internal/slideshow"
	"github.com/slidecast/slidecast-api/internal/storage"
)

// mockConverter implements Converter for testing.
type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) Convert(ctx context.Context, input slideshow.ConvertInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

// mockResizer implements Resizer for testing.
type mockResizer struct {
	mock.Mock
}

func (m *mockResizer) FitExact(ctx context.Context, url string, width, height int) (string, error) {
	args := m.Called(ctx, url, width, height)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	converter *mockConverter
	resizer   *mockResizer
	store     *storage.Local
	router    http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(base, "uploads"), filepath.Join(base, "videos"))
	require.NoError(t, err)

	converter := &mockConverter{}
	resizer := &mockResizer{}
	logger := slog.Default()

	handlers := NewHandlers(converter, resizer, store, logger)
	router := NewRouter(handlers, logger, DefaultConfig())

	return &testEnv{
		converter: converter,
		resizer:   resizer,
		store:     store,
		router:    router,
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestConvert(t *testing.T) {
	t.Run("invalid JSON body", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/convert", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.router, "/convert", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "required")
	})

	t.Run("empty image list", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.router, "/convert", ConvertRequest{
			AudioURL:  "http://example.com/a.mp3",
			ImageURLs: []string{},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env.converter.AssertNotCalled(t, "Convert")
	})

	t.Run("audio download failure maps to 400", func(t *testing.T) {
		env := newTestEnv(t)
		env.converter.On("Convert", mock.Anything, mock.Anything).
			Return("", slideshow.ErrAudioDownload)

		rec := postJSON(t, env.router, "/convert", ConvertRequest{
			AudioURL:  "http://example.com/a.mp3",
			ImageURLs: []string{"http://example.com/1.jpg"},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no valid images maps to 400", func(t *testing.T) {
		env := newTestEnv(t)
		env.converter.On("Convert", mock.Anything, mock.Anything).
			Return("", slideshow.ErrNoImages)

		rec := postJSON(t, env.router, "/convert", ConvertRequest{
			AudioURL:  "http://example.com/a.mp3",
			ImageURLs: []string{"http://example.com/1.jpg"},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero duration maps to 500", func(t *testing.T) {
		env := newTestEnv(t)
		env.converter.On("Convert", mock.Anything, mock.Anything).
			Return("", slideshow.ErrAudioDuration)

		rec := postJSON(t, env.router, "/convert", ConvertRequest{
			AudioURL:  "http://example.com/a.mp3",
			ImageURLs: []string{"http://example.com/1.jpg"},
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("encoder failure maps to 500", func(t *testing.T) {
		env := newTestEnv(t)
		env.converter.On("Convert", mock.Anything, mock.Anything).
			Return("", errors.New("encode slideshow: exit status 1"))

		rec := postJSON(t, env.router, "/convert", ConvertRequest{
			AudioURL:  "http://example.com/a.mp3",
			ImageURLs: []string{"http://example.com/1.jpg"},
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "video generation")
	})

	t.Run("success returns the video as an attachment", func(t *testing.T) {
		env := newTestEnv(t)

		videoPath := env.store.VideoPath("result_output.mp4")
		require.NoError(t, os.WriteFile(videoPath, []byte("mp4-bytes"), 0600))

		input := slideshow.ConvertInput{
			AudioURL:  "http://example.com/a.mp3",
			ImageURLs: []string{"http://example.com/1.jpg", "http://example.com/2.jpg"},
		}
		env.converter.On("Convert", mock.Anything, input).Return(videoPath, nil)

		rec := postJSON(t, env.router, "/convert", ConvertRequest{
			AudioURL:  input.AudioURL,
			ImageURLs: input.ImageURLs,
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "result_output.mp4")
		assert.Equal(t, "mp4-bytes", rec.Body.String())

		env.converter.AssertExpectations(t)
	})
}

func TestDelete(t *testing.T) {
	t.Run("missing filename", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.router, "/delete", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
	})

	t.Run("path traversal is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		outside := filepath.Join(filepath.Dir(env.store.VideoDir()), "precious.txt")
		require.NoError(t, os.WriteFile(outside, []byte("keep"), 0600))

		rec := postJSON(t, env.router, "/delete", DeleteRequest{Filename: "../precious.txt"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.FileExists(t, outside)
	})

	t.Run("missing file returns 404", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.router, "/delete", DeleteRequest{Filename: "absent.mp4"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("success removes the video", func(t *testing.T) {
		env := newTestEnv(t)

		path := env.store.VideoPath("old.mp4")
		require.NoError(t, os.WriteFile(path, []byte("video"), 0600))

		rec := postJSON(t, env.router, "/delete", DeleteRequest{Filename: "old.mp4"})

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("DELETE method works too", func(t *testing.T) {
		env := newTestEnv(t)

		path := env.store.VideoPath("old.mp4")
		require.NoError(t, os.WriteFile(path, []byte("video"), 0600))

		body, err := json.Marshal(DeleteRequest{Filename: "old.mp4"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodDelete, "/delete", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestResizeImage(t *testing.T) {
	t.Run("missing parameters", func(t *testing.T) {
		env := newTestEnv(t)

		for _, query := range []string{
			"",
			"?width=100&height=100",
			"?width=100&url=http://example.com/i.jpg",
			"?width=abc&height=100&url=http://example.com/i.jpg",
			"?width=-5&height=100&url=http://example.com/i.jpg",
		} {
			req := httptest.NewRequest(http.MethodGet, "/resize-image"+query, nil)
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, "query: %q", query)
		}
		env.resizer.AssertNotCalled(t, "FitExact")
	})

	t.Run("resize failure maps to 500", func(t *testing.T) {
		env := newTestEnv(t)
		env.resizer.On("FitExact", mock.Anything, "http://example.com/i.jpg", 100, 80).
			Return("", errors.New("decode image: unknown format"))

		req := httptest.NewRequest(http.MethodGet, "/resize-image?width=100&height=80&url=http://example.com/i.jpg", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("success serves the image and removes the file", func(t *testing.T) {
		env := newTestEnv(t)

		outPath := env.store.UploadPath("resized.jpg")
		require.NoError(t, os.WriteFile(outPath, []byte("jpeg-bytes"), 0600))

		env.resizer.On("FitExact", mock.Anything, "http://example.com/i.jpg", 100, 80).
			Return(outPath, nil)

		req := httptest.NewRequest(http.MethodGet, "/resize-image?width=100&height=80&url=http://example.com/i.jpg", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jpeg-bytes", rec.Body.String())

		_, err := os.Stat(outPath)
		assert.True(t, os.IsNotExist(err), "served resize output must be removed")

		env.resizer.AssertExpectations(t)
	})
}

func TestCORSMiddleware(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/convert", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
