package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabsSynthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("posts to the voice derived from the reference endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/text-to-speech/abc123", r.URL.Path)
			assert.Equal(t, "key-1", r.Header.Get("xi-api-key"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "eleven_turbo_v2", body["model_id"])
			assert.Equal(t, "Well met.", body["text"])

			w.Write([]byte("mp3-bytes"))
		}))
		defer srv.Close()

		svc := NewElevenLabsWithBaseURL("key-1", srv.URL)
		audio, err := svc.Synthesize(ctx, "Well met.", "https://api.elevenlabs.io/v1/text-to-speech/abc123")
		require.NoError(t, err)
		assert.Equal(t, []byte("mp3-bytes"), audio)
	})

	t.Run("bare voice id works as a reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/text-to-speech/abc123", r.URL.Path)
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		svc := NewElevenLabsWithBaseURL("key-1", srv.URL)
		_, err := svc.Synthesize(ctx, "hi", "abc123")
		require.NoError(t, err)
	})

	t.Run("empty voice reference fails", func(t *testing.T) {
		svc := NewElevenLabsWithBaseURL("key-1", "http://unused")
		_, err := svc.Synthesize(ctx, "hi", "")
		assert.ErrorIs(t, err, ErrSynthesisUnavailable)
	})

	t.Run("non-200 responses are a service failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		svc := NewElevenLabsWithBaseURL("key-1", srv.URL)
		_, err := svc.Synthesize(ctx, "hi", "abc123")
		assert.ErrorIs(t, err, ErrSynthesisUnavailable)
	})
}
