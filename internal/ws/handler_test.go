package ws

import (
	"context"
	"testing"
	"time"

	"talktolisten/backend/internal/voice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateDecoder blocks inside Decode until released, so a test can line up a
// disconnect while the pipeline is still working on a chunk.
type gateDecoder struct {
	entered chan struct{}
	release chan struct{}
}

func (d *gateDecoder) Decode(ctx context.Context, encoded []byte, format string) (voice.Waveform, error) {
	d.entered <- struct{}{}
	<-d.release
	return voice.Waveform{Params: voice.CanonicalParams, Data: []byte{0, 0}}, nil
}

type silentClassifier struct{}

func (silentClassifier) Classify(voice.Waveform) bool { return false }

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return &Client{
		ID:     "test-client",
		Send:   make(chan []byte, 4),
		ChatID: 1,
		BotID:  2,
		chunks: make(chan inboundChunk, chunkQueueSize),
		done:   make(chan struct{}),
	}
}

func TestDisconnectMidTurnDoesNotPanic(t *testing.T) {
	dec := &gateDecoder{entered: make(chan struct{}), release: make(chan struct{})}
	orch := voice.NewOrchestrator(voice.Deps{
		Decoder:    dec,
		Classifier: silentClassifier{},
	})

	client := newTestClient(t)
	client.Hub = NewHub(orch, nil)

	client.chunks <- inboundChunk{data: []byte("chunk"), format: "wav"}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		client.consumeChunks()
	}()

	// Wait until the consumer is inside the pipeline, then tear the client
	// down the way the hub does on unregister.
	<-dec.entered
	client.shutdown()
	close(dec.release)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish after shutdown")
	}

	// The late result is dropped, not delivered.
	assert.Len(t, client.Send, 0)
}

func TestSendMessageAfterShutdownIsDiscarded(t *testing.T) {
	client := newTestClient(t)
	client.shutdown()

	require.NotPanics(t, func() {
		client.sendMessage("turn", voice.Result{TurnComplete: true})
	})
	assert.Len(t, client.Send, 0)
}

func TestShutdownIsIdempotent(t *testing.T) {
	client := newTestClient(t)
	require.NotPanics(t, func() {
		client.shutdown()
		client.shutdown()
	})
}
