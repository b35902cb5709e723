package api

import (
	"net/http"
	"strconv"

	"talktolisten/backend/internal/models"
	"talktolisten/backend/internal/service"
	"talktolisten/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles conversation endpoints: opening chats, reading
// history, and posting text messages.
type ChatHandler struct {
	chats    *service.ChatService
	messages *service.MessageService
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chats *service.ChatService, messages *service.MessageService, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, messages: messages, logger: logger}
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chats.CreateChat(userID, req.BotID)
	if err != nil {
		h.logger.LogError(err, "failed to create chat", "bot_id", req.BotID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, chat)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	chats, err := h.chats.ListUserChats(userID)
	if err != nil {
		h.logger.LogError(err, "failed to list chats", "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats, "count": len(chats)})
}

func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var messages []models.Message
	var err error
	if before := c.Query("before"); before != "" {
		var beforeID uint
		if beforeID, err = parseID(before); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before id"})
			return
		}
		messages, err = h.messages.GetOlderMessages(chat.ID, beforeID, limit)
	} else {
		messages, err = h.messages.GetChatMessages(chat.ID, limit)
	}
	if err != nil {
		h.logger.LogError(err, "failed to load messages", "chat_id", chat.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_id":  chat.ID,
		"messages": messages,
		"count":    len(messages),
	})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}
	userID, _ := currentUserID(c)

	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := h.messages.CreateUserMessage(chat.ID, userID, req.Text)
	if err != nil {
		h.logger.LogError(err, "failed to save message", "chat_id", chat.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) GetMessage(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}

	messageID, err := parseID(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messages.GetMessage(messageID)
	if err != nil || msg.ChatID != chat.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}

	messageID, err := parseID(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.messages.DeleteMessage(chat.ID, messageID); err != nil {
		if err == service.ErrMessageNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}

	if err := h.chats.DeleteChat(chat.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// authorizedChat loads the chat named in the route and verifies it belongs
// to the authenticated user. On failure it writes the response itself.
func (h *ChatHandler) authorizedChat(c *gin.Context) (*models.Chat, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}

	chatID, err := parseID(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return nil, false
	}

	chat, err := h.chats.GetChat(chatID)
	if err != nil {
		if err == service.ErrChatNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
			return nil, false
		}
		h.logger.LogError(err, "failed to load chat", "chat_id", chatID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}

	if chat.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Chat belongs to another user"})
		return nil, false
	}

	return chat, true
}
