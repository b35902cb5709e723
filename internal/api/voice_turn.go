package api

import (
	"io"
	"net/http"
	"sync"

	"talktolisten/backend/internal/voice"
	"talktolisten/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxChunkBytes caps one uploaded audio chunk. Clients send sub-second
// recordings; anything bigger is a misbehaving client.
const maxChunkBytes = 4 << 20

// VoiceTurnHandler accepts streamed audio chunks over REST and feeds them to
// the turn pipeline. Chunks for the same conversation are serialized with a
// per-conversation lock so buffering happens in arrival order even when a
// client pipelines requests.
type VoiceTurnHandler struct {
	orchestrator *voice.Orchestrator
	chats        *ChatHandler
	logger       *logger.Logger

	mu    sync.Mutex
	locks map[uint]*chatLock
}

// chatLock is a refcounted per-chat mutex. The entry is removed from the
// table once the last request for that chat releases it, so the table only
// holds chats with requests in flight.
type chatLock struct {
	mu   sync.Mutex
	refs int
}

// NewVoiceTurnHandler creates a new voice turn handler
func NewVoiceTurnHandler(orchestrator *voice.Orchestrator, chats *ChatHandler, logger *logger.Logger) *VoiceTurnHandler {
	return &VoiceTurnHandler{
		orchestrator: orchestrator,
		chats:        chats,
		logger:       logger,
		locks:        make(map[uint]*chatLock),
	}
}

func (h *VoiceTurnHandler) acquireChat(chatID uint) *chatLock {
	h.mu.Lock()
	lock, ok := h.locks[chatID]
	if !ok {
		lock = &chatLock{}
		h.locks[chatID] = lock
	}
	lock.refs++
	h.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (h *VoiceTurnHandler) releaseChat(chatID uint, lock *chatLock) {
	lock.mu.Unlock()

	h.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(h.locks, chatID)
	}
	h.mu.Unlock()
}

// PushChunk handles one uploaded audio chunk for a chat. The response is the
// pipeline result: either an incomplete-turn acknowledgement or the full
// outcome of a flushed turn.
func (h *VoiceTurnHandler) PushChunk(c *gin.Context) {
	chat, ok := h.chats.authorizedChat(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "m4a")
	encoded, err := io.ReadAll(io.LimitReader(c.Request.Body, maxChunkBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio body"})
		return
	}
	if len(encoded) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty audio body"})
		return
	}
	if len(encoded) > maxChunkBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio chunk too large"})
		return
	}

	lock := h.acquireChat(chat.ID)
	result := h.orchestrator.ProcessChunk(c.Request.Context(), chat.ID, chat.BotID, encoded, format)
	h.releaseChat(chat.ID, lock)

	c.JSON(statusForResult(result), result)
}

// EndConversation discards any partially buffered utterance for a chat.
func (h *VoiceTurnHandler) EndConversation(c *gin.Context) {
	chat, ok := h.chats.authorizedChat(c)
	if !ok {
		return
	}

	lock := h.acquireChat(chat.ID)
	h.orchestrator.EndConversation(chat.ID, chat.BotID)
	h.releaseChat(chat.ID, lock)

	c.Status(http.StatusNoContent)
}

// statusForResult maps a pipeline result to an HTTP status. Stage failures
// inside a completed turn are still a 200: the turn was handled, the body
// carries the error code.
func statusForResult(result voice.Result) int {
	switch result.ErrorCode {
	case "":
		return http.StatusOK
	case "UnsupportedFormat", "InconsistentChunkFormat":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
