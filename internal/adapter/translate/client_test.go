package translate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hy", req["source"])
		assert.Equal(t, "en", req["target"])
		assert.Equal(t, "text", req["format"])
		assert.NotEmpty(t, req["q"])
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": "Water outage in Yerevan"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, discardLogger())
	out, err := c.Translate(context.Background(), "Ջրանջատում Երևանում")

	require.NoError(t, err)
	assert.Equal(t, "Water outage in Yerevan", out)
}

func TestTranslateBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, discardLogger())
	_, err := c.Translate(context.Background(), "text")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTranslateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unsupported language pair"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, discardLogger())
	_, err := c.Translate(context.Background(), "text")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "unsupported language pair")
}

func TestTranslateEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": ""})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, discardLogger())
	_, err := c.Translate(context.Background(), "text")

	assert.ErrorIs(t, err, ErrUnavailable)
}
