package voice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAzureSpeechTranscribe(t *testing.T) {
	ctx := context.Background()
	turn := pcm(1, 2, 3, 4)

	t.Run("returns the display text of a successful recognition", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/speech/recognition/conversation/cognitiveservices/v1", r.URL.Path)
			assert.Equal(t, "en-US", r.URL.Query().Get("language"))
			assert.Equal(t, "key-1", r.Header.Get("Ocp-Apim-Subscription-Key"))
			assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			parsed, err := ParseWAV(body)
			require.NoError(t, err)
			assert.Equal(t, turn.Data, parsed.Data)

			json.NewEncoder(w).Encode(map[string]string{
				"RecognitionStatus": "Success",
				"DisplayText":       "Hello there.",
			})
		}))
		defer srv.Close()

		svc := NewAzureSpeechWithEndpoint("key-1", srv.URL)
		text, err := svc.Transcribe(ctx, turn)
		require.NoError(t, err)
		assert.Equal(t, "Hello there.", text)
	})

	t.Run("empty display text is not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"RecognitionStatus": "InitialSilenceTimeout"})
		}))
		defer srv.Close()

		svc := NewAzureSpeechWithEndpoint("key-1", srv.URL)
		text, err := svc.Transcribe(ctx, turn)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("non-200 responses are a service failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		svc := NewAzureSpeechWithEndpoint("bad-key", srv.URL)
		_, err := svc.Transcribe(ctx, turn)
		assert.ErrorIs(t, err, ErrTranscriptionUnavailable)
	})

	t.Run("unreachable service is a service failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		svc := NewAzureSpeechWithEndpoint("key-1", srv.URL)
		_, err := svc.Transcribe(ctx, turn)
		assert.ErrorIs(t, err, ErrTranscriptionUnavailable)
	})
}
