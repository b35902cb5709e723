package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TranscriptionService converts a complete spoken turn into text. An empty
// transcript with a nil error means the service recognized no speech; that is
// distinct from ErrTranscriptionUnavailable, which reports a transport or
// service failure.
type TranscriptionService interface {
	Transcribe(ctx context.Context, turn Waveform) (string, error)
}

// AzureSpeech transcribes through the Azure Speech REST endpoint.
type AzureSpeech struct {
	key        string
	region     string
	baseURL    string
	httpClient *http.Client
}

// NewAzureSpeech creates the bridge for the given subscription key and
// region.
func NewAzureSpeech(key, region string) *AzureSpeech {
	return &AzureSpeech{
		key:        key,
		region:     region,
		baseURL:    fmt.Sprintf("https://%s.stt.speech.microsoft.com", region),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewAzureSpeechWithEndpoint overrides the service endpoint, used for tests
// and private deployments.
func NewAzureSpeechWithEndpoint(key, baseURL string) *AzureSpeech {
	return &AzureSpeech{
		key:        key,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *AzureSpeech) Transcribe(ctx context.Context, turn Waveform) (string, error) {
	url := s.baseURL + "/speech/recognition/conversation/cognitiveservices/v1?language=en-US&format=detailed"

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(EncodeWAV(turn)))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrTranscriptionUnavailable, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscriptionUnavailable, resp.StatusCode, body)
	}

	var result struct {
		DisplayText string `json:"DisplayText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrTranscriptionUnavailable, err)
	}

	return result.DisplayText, nil
}
