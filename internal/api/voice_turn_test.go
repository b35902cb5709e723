package api

import (
	"net/http"
	"testing"
	"time"

	"talktolisten/backend/internal/voice"

	"github.com/stretchr/testify/assert"
)

func TestStatusForResult(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusForResult(voice.Result{}))
	assert.Equal(t, http.StatusOK, statusForResult(voice.Result{TurnComplete: true, ReplyText: "hi"}))

	// Chunk-level rejections are client errors
	assert.Equal(t, http.StatusUnprocessableEntity, statusForResult(voice.Result{ErrorCode: "UnsupportedFormat"}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusForResult(voice.Result{ErrorCode: "InconsistentChunkFormat"}))

	// A turn that completed but failed downstream is still a handled turn
	assert.Equal(t, http.StatusOK, statusForResult(voice.Result{TurnComplete: true, ErrorCode: "GenerationTimeout"}))
	assert.Equal(t, http.StatusOK, statusForResult(voice.Result{TurnComplete: true, ErrorCode: "SynthesisUnavailable"}))
}

func TestChatLockSerializesSameChat(t *testing.T) {
	h := NewVoiceTurnHandler(nil, nil, nil)

	a := h.acquireChat(1)

	// A second request for the same chat shares the entry and blocks on it.
	acquired := make(chan *chatLock)
	go func() {
		acquired <- h.acquireChat(1)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire did not wait for the first release")
	case <-time.After(50 * time.Millisecond):
	}

	// A different chat is independent.
	c := h.acquireChat(2)
	assert.NotSame(t, a, c)
	h.releaseChat(2, c)

	h.releaseChat(1, a)
	b := <-acquired
	assert.Same(t, a, b)
	h.releaseChat(1, b)
}

func TestChatLockTableShrinksWhenIdle(t *testing.T) {
	h := NewVoiceTurnHandler(nil, nil, nil)

	for chatID := uint(1); chatID <= 100; chatID++ {
		lock := h.acquireChat(chatID)
		h.releaseChat(chatID, lock)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Empty(t, h.locks)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	assert.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = parseID("not-a-number")
	assert.Error(t, err)

	_, err = parseID("-1")
	assert.Error(t, err)
}
