package voice

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAzureBlobStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put uploads the blob and returns a token-free url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "PUT", r.Method)
			assert.Equal(t, "/audio-messages/42.mp3", r.URL.Path)
			assert.Equal(t, "sv=2022&sig=abc", r.URL.RawQuery)
			assert.Equal(t, "BlockBlob", r.Header.Get("x-ms-blob-type"))
			assert.Equal(t, "audio/mpeg", r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, []byte("mp3-bytes"), body)

			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		store := NewAzureBlobStoreWithBaseURL("audio-messages", "?sv=2022&sig=abc", srv.URL)
		url, err := store.Put(ctx, "42.mp3", []byte("mp3-bytes"), "audio/mpeg")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/audio-messages/42.mp3", url)
		assert.NotContains(t, url, "sig=")
	})

	t.Run("rejected upload is a persistence failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		store := NewAzureBlobStoreWithBaseURL("audio-messages", "expired", srv.URL)
		_, err := store.Put(ctx, "42.mp3", []byte("x"), "audio/mpeg")
		assert.ErrorIs(t, err, ErrPersistenceFailure)
	})

	t.Run("delete tolerates a missing blob", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "DELETE", r.Method)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		store := NewAzureBlobStoreWithBaseURL("audio-messages", "tok", srv.URL)
		assert.NoError(t, store.Delete(ctx, "gone.mp3"))
	})
}
