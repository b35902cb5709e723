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

// JobState is the lifecycle of an in-flight generation job.
type JobState int

const (
	// JobPending means the job was accepted but has not produced output yet.
	JobPending JobState = iota
	// JobCompleted means the job finished and Output carries the raw model text.
	JobCompleted
	// JobFailed means the service reported a terminal failure.
	JobFailed
)

// PollResult is one observation of a generation job.
type PollResult struct {
	State  JobState
	Output string
}

// GenerationService is the two-phase submit/poll contract of the text
// generation backend.
type GenerationService interface {
	// Submit enqueues a generation request and returns an opaque job id.
	Submit(ctx context.Context, system, prompt string) (string, error)
	// Poll observes the job once.
	Poll(ctx context.Context, jobID string) (PollResult, error)
}

// PollConfig bounds the polling loop.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollConfig matches the generation backend's expected completion
// latency: 10 attempts 1.5s apart, ~15s ceiling.
func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: 1500 * time.Millisecond, MaxAttempts: 10}
}

// GenerateReply submits a prompt, polls until the job completes or the
// attempt budget runs out, and extracts the answer from the raw model output.
// Exhausting the budget yields ErrGenerationTimeout; a job reported as failed
// yields ErrGenerationUnavailable.
func GenerateReply(ctx context.Context, svc GenerationService, system, prompt string, cfg PollConfig) (string, error) {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultPollConfig()
	}

	jobID, err := svc.Submit(ctx, system, prompt)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := svc.Poll(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch result.State {
		case JobCompleted:
			return ExtractAnswer(result.Output)
		case JobFailed:
			return "", fmt.Errorf("%w: job %s reported failure", ErrGenerationUnavailable, jobID)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, ctx.Err())
		case <-time.After(cfg.Interval):
		}
	}

	return "", fmt.Errorf("%w: job %s after %d attempts", ErrGenerationTimeout, jobID, cfg.MaxAttempts)
}

// answerDelimiter marks the start of the answer inside the raw model output.
const answerDelimiter = "[/INST]"

// ExtractAnswer pulls the answer substring out of raw model output. The
// answer begins 8 characters after the start of the delimiter; the first 7
// characters from there are taken unconditionally, then the scan stops at the
// first ']' or newline. Embedded newlines are stripped. An absent delimiter
// fails with ErrMalformedGenerationOutput.
func ExtractAnswer(raw string) (string, error) {
	idx := strings.Index(raw, answerDelimiter)
	if idx < 0 {
		return "", fmt.Errorf("%w: delimiter %q not found", ErrMalformedGenerationOutput, answerDelimiter)
	}

	start := idx + 8
	if start > len(raw) {
		start = len(raw)
	}
	end := start + 7
	if end > len(raw) {
		end = len(raw)
	}
	for end < len(raw) && raw[end] != ']' && raw[end] != '\n' {
		end++
	}

	return strings.ReplaceAll(raw[start:end], "\n", ""), nil
}

// RunPod drives a serverless generation endpoint via its run/status API.
type RunPod struct {
	endpoint   string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewRunPod creates the bridge for one serverless endpoint.
func NewRunPod(endpoint, apiKey string) *RunPod {
	return &RunPod{
		endpoint:   endpoint,
		apiKey:     apiKey,
		baseURL:    "https://api.runpod.ai",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewRunPodWithBaseURL overrides the API host, used for tests.
func NewRunPodWithBaseURL(endpoint, apiKey, baseURL string) *RunPod {
	rp := NewRunPod(endpoint, apiKey)
	rp.baseURL = baseURL
	return rp
}

func (r *RunPod) Submit(ctx context.Context, system, prompt string) (string, error) {
	payload := map[string]interface{}{
		"input": map[string]string{
			"system": system,
			"prompt": prompt,
		},
		"temperature": 0.9,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", ErrGenerationUnavailable, err)
	}

	url := fmt.Sprintf("%s/v2/%s/run", r.baseURL, r.endpoint)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrGenerationUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationUnavailable, resp.StatusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrGenerationUnavailable, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: no job id in response", ErrGenerationUnavailable)
	}

	return result.ID, nil
}

func (r *RunPod) Poll(ctx context.Context, jobID string) (PollResult, error) {
	url := fmt.Sprintf("%s/v2/%s/status/%s", r.baseURL, r.endpoint, jobID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: creating request: %v", ErrGenerationUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return PollResult{}, fmt.Errorf("%w: status %d: %s", ErrGenerationUnavailable, resp.StatusCode, respBody)
	}

	var result struct {
		Status string `json:"status"`
		Output struct {
			Output string `json:"output"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return PollResult{}, fmt.Errorf("%w: decoding response: %v", ErrGenerationUnavailable, err)
	}

	switch result.Status {
	case "COMPLETED":
		return PollResult{State: JobCompleted, Output: result.Output.Output}, nil
	case "FAILED", "CANCELLED":
		return PollResult{State: JobFailed}, nil
	default:
		return PollResult{State: JobPending}, nil
	}
}
