package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BlobStore persists synthesized reply audio durably and returns a stable
// retrieval URL. Failures map to ErrPersistenceFailure; they are distinct
// from synthesis failures for reporting.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// AzureBlobStore writes blobs to one Azure Storage container through the
// Blob REST API, authorizing with a container-scoped SAS token.
type AzureBlobStore struct {
	account    string
	container  string
	sasToken   string
	baseURL    string
	httpClient *http.Client
}

// NewAzureBlobStore creates a store for the given account and container.
// sasToken is the query-string token without a leading '?'.
func NewAzureBlobStore(account, container, sasToken string) *AzureBlobStore {
	return &AzureBlobStore{
		account:    account,
		container:  container,
		sasToken:   strings.TrimPrefix(sasToken, "?"),
		baseURL:    fmt.Sprintf("https://%s.blob.core.windows.net", account),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewAzureBlobStoreWithBaseURL overrides the storage host, used for tests.
func NewAzureBlobStoreWithBaseURL(container, sasToken, baseURL string) *AzureBlobStore {
	return &AzureBlobStore{
		container:  container,
		sasToken:   strings.TrimPrefix(sasToken, "?"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *AzureBlobStore) blobURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.container, key)
}

func (s *AzureBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	url := s.blobURL(key)
	reqURL := url
	if s.sasToken != "" {
		reqURL += "?" + s.sasToken
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", reqURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrPersistenceFailure, err)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrPersistenceFailure, resp.StatusCode, body)
	}

	// The retrieval URL never carries the SAS token.
	return url, nil
}

func (s *AzureBlobStore) Delete(ctx context.Context, key string) error {
	reqURL := s.blobURL(key)
	if s.sasToken != "" {
		reqURL += "?" + s.sasToken
	}

	req, err := http.NewRequestWithContext(ctx, "DELETE", reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrPersistenceFailure, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrPersistenceFailure, resp.StatusCode, body)
	}
	return nil
}
