package voice

import (
	"context"
	"errors"
	"fmt"

	"talktolisten/backend/pkg/resilience"
)

// GuardedTranscription wraps a TranscriptionService with a circuit breaker.
// A short-circuited call is reported as ErrTranscriptionUnavailable so the
// pipeline treats it like any other transcription outage.
type GuardedTranscription struct {
	inner   TranscriptionService
	breaker *resilience.CircuitBreaker
}

func NewGuardedTranscription(inner TranscriptionService, breaker *resilience.CircuitBreaker) *GuardedTranscription {
	return &GuardedTranscription{inner: inner, breaker: breaker}
}

func (g *GuardedTranscription) Transcribe(ctx context.Context, turn Waveform) (string, error) {
	var text string
	err := g.breaker.Execute(func() error {
		var innerErr error
		text, innerErr = g.inner.Transcribe(ctx, turn)
		return innerErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// GuardedSynthesis wraps a SynthesisService with a circuit breaker, mapping
// short-circuited calls to ErrSynthesisUnavailable.
type GuardedSynthesis struct {
	inner   SynthesisService
	breaker *resilience.CircuitBreaker
}

func NewGuardedSynthesis(inner SynthesisService, breaker *resilience.CircuitBreaker) *GuardedSynthesis {
	return &GuardedSynthesis{inner: inner, breaker: breaker}
}

func (g *GuardedSynthesis) Synthesize(ctx context.Context, text, voiceReference string) ([]byte, error) {
	var audio []byte
	err := g.breaker.Execute(func() error {
		var innerErr error
		audio, innerErr = g.inner.Synthesize(ctx, text, voiceReference)
		return innerErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return audio, nil
}
