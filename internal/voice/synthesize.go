package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SynthesisService converts reply text into playable audio bytes for a given
// voice. The voice reference is the provider endpoint stored on the Voice
// record; the implementation derives its own identifier from it.
type SynthesisService interface {
	Synthesize(ctx context.Context, text, voiceReference string) ([]byte, error)
}

// ElevenLabs synthesizes speech through the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabs creates the bridge with the given API key.
func NewElevenLabs(apiKey string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:  apiKey,
		baseURL: "https://api.elevenlabs.io",
		// Synthesis returns a full audio body, allow more than the usual
		// bridge timeout.
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewElevenLabsWithBaseURL overrides the API host, used for tests.
func NewElevenLabsWithBaseURL(apiKey, baseURL string) *ElevenLabs {
	el := NewElevenLabs(apiKey)
	el.baseURL = baseURL
	return el
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceReference string) ([]byte, error) {
	// Voice endpoints are stored as provider URLs; the trailing path segment
	// is the ElevenLabs voice id.
	parts := strings.Split(voiceReference, "/")
	voiceID := parts[len(parts)-1]
	if voiceID == "" {
		return nil, fmt.Errorf("%w: empty voice reference", ErrSynthesisUnavailable)
	}

	payload := map[string]string{
		"model_id": "eleven_turbo_v2",
		"text":     text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", ErrSynthesisUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrSynthesisUnavailable, err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrSynthesisUnavailable, resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio body: %v", ErrSynthesisUnavailable, err)
	}

	return audio, nil
}
