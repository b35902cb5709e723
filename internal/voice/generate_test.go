package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "answer after delimiter and space",
			raw:  "<|user|>hi</s>[/INST] Greetings traveler, welcome]",
			want: "Greetings traveler, welcome",
		},
		{
			name: "stops at closing bracket",
			raw:  "[/INST] A short reply] trailing junk",
			want: "A short reply",
		},
		{
			name: "first seven characters taken before the bracket scan",
			raw:  "foo[/INST]12345678]",
			want: "2345678",
		},
		{
			name: "stops at newline after the unconditional window",
			raw:  "[/INST] Hello there\nsecond line]",
			want: "Hello there",
		},
		{
			name: "embedded newline inside the window is stripped",
			raw:  "[/INST] Hello\nworld more text]",
			want: "Helloworld more text",
		},
		{
			name: "runs to end of input without a terminator",
			raw:  "[/INST] An unterminated answer",
			want: "An unterminated answer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAnswer(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("absent delimiter is malformed output", func(t *testing.T) {
		_, err := ExtractAnswer("the model went off script entirely")
		assert.ErrorIs(t, err, ErrMalformedGenerationOutput)
	})

	t.Run("delimiter at end of input yields empty answer", func(t *testing.T) {
		got, err := ExtractAnswer("prompt[/INST]")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

// scriptedGeneration replays a fixed sequence of poll observations.
type scriptedGeneration struct {
	submitErr error
	results   []PollResult
	pollErr   error
	submits   int
	polls     int
}

func (s *scriptedGeneration) Submit(ctx context.Context, system, prompt string) (string, error) {
	s.submits++
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return "job-1", nil
}

func (s *scriptedGeneration) Poll(ctx context.Context, jobID string) (PollResult, error) {
	s.polls++
	if s.pollErr != nil {
		return PollResult{}, s.pollErr
	}
	if s.polls > len(s.results) {
		return PollResult{State: JobPending}, nil
	}
	return s.results[s.polls-1], nil
}

func fastPoll(attempts int) PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxAttempts: attempts}
}

func TestDefaultPollConfig(t *testing.T) {
	// 10 attempts 1.5s apart bound the generation wait at ~15s.
	assert.Equal(t, PollConfig{Interval: 1500 * time.Millisecond, MaxAttempts: 10}, DefaultPollConfig())
}

func TestGenerateReply(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the extracted answer when a poll completes", func(t *testing.T) {
		svc := &scriptedGeneration{results: []PollResult{
			{State: JobPending},
			{State: JobCompleted, Output: "[/INST] All is well here]"},
		}}

		reply, err := GenerateReply(ctx, svc, "sys", "prompt", fastPoll(10))
		require.NoError(t, err)
		assert.Equal(t, "All is well here", reply)
		assert.Equal(t, 1, svc.submits)
		assert.Equal(t, 2, svc.polls)
	})

	t.Run("exhausting the attempt budget times out", func(t *testing.T) {
		svc := &scriptedGeneration{}

		_, err := GenerateReply(ctx, svc, "sys", "prompt", fastPoll(10))
		assert.ErrorIs(t, err, ErrGenerationTimeout)
		assert.Equal(t, 10, svc.polls)
	})

	t.Run("failed job is a service failure, not a timeout", func(t *testing.T) {
		svc := &scriptedGeneration{results: []PollResult{{State: JobFailed}}}

		_, err := GenerateReply(ctx, svc, "sys", "prompt", fastPoll(10))
		assert.ErrorIs(t, err, ErrGenerationUnavailable)
		assert.Equal(t, 1, svc.polls)
	})

	t.Run("submit failure short-circuits polling", func(t *testing.T) {
		svc := &scriptedGeneration{submitErr: fmt.Errorf("%w: boom", ErrGenerationUnavailable)}

		_, err := GenerateReply(ctx, svc, "sys", "prompt", fastPoll(10))
		assert.ErrorIs(t, err, ErrGenerationUnavailable)
		assert.Zero(t, svc.polls)
	})

	t.Run("poll failure propagates", func(t *testing.T) {
		svc := &scriptedGeneration{pollErr: errors.New("network down")}

		_, err := GenerateReply(ctx, svc, "sys", "prompt", fastPoll(10))
		assert.Error(t, err)
		assert.Equal(t, 1, svc.polls)
	})

	t.Run("completion with missing delimiter is malformed output", func(t *testing.T) {
		svc := &scriptedGeneration{results: []PollResult{
			{State: JobCompleted, Output: "no delimiter anywhere"},
		}}

		_, err := GenerateReply(ctx, svc, "sys", "prompt", fastPoll(10))
		assert.ErrorIs(t, err, ErrMalformedGenerationOutput)
	})

	t.Run("canceled context stops the wait between polls", func(t *testing.T) {
		svc := &scriptedGeneration{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := GenerateReply(ctx, svc, "sys", "prompt", PollConfig{Interval: time.Minute, MaxAttempts: 10})
		assert.ErrorIs(t, err, ErrGenerationTimeout)
		assert.Equal(t, 1, svc.polls)
	})
}

func TestRunPod(t *testing.T) {
	ctx := context.Background()

	t.Run("submit posts the prompt and returns the job id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/ep-1/run", r.URL.Path)
			assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

			var body struct {
				Input map[string]string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "sys", body.Input["system"])
			assert.True(t, strings.Contains(body.Input["prompt"], "hello"))

			json.NewEncoder(w).Encode(map[string]string{"id": "job-42", "status": "IN_QUEUE"})
		}))
		defer srv.Close()

		rp := NewRunPodWithBaseURL("ep-1", "key-1", srv.URL)
		id, err := rp.Submit(ctx, "sys", "say hello")
		require.NoError(t, err)
		assert.Equal(t, "job-42", id)
	})

	t.Run("submit rejects non-200 responses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		rp := NewRunPodWithBaseURL("ep-1", "bad-key", srv.URL)
		_, err := rp.Submit(ctx, "sys", "prompt")
		assert.ErrorIs(t, err, ErrGenerationUnavailable)
	})

	t.Run("poll maps service statuses to job states", func(t *testing.T) {
		status := "IN_PROGRESS"
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/ep-1/status/job-42", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": status,
				"output": map[string]string{"output": "[/INST] Done]"},
			})
		}))
		defer srv.Close()

		rp := NewRunPodWithBaseURL("ep-1", "key-1", srv.URL)

		res, err := rp.Poll(ctx, "job-42")
		require.NoError(t, err)
		assert.Equal(t, JobPending, res.State)

		status = "COMPLETED"
		res, err = rp.Poll(ctx, "job-42")
		require.NoError(t, err)
		assert.Equal(t, JobCompleted, res.State)
		assert.Equal(t, "[/INST] Done]", res.Output)

		status = "FAILED"
		res, err = rp.Poll(ctx, "job-42")
		require.NoError(t, err)
		assert.Equal(t, JobFailed, res.State)
	})
}
