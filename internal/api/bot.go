package api

import (
	"net/http"
	"strconv"

	"talktolisten/backend/internal/models"
	"talktolisten/backend/internal/service"
	"talktolisten/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// BotHandler handles bot catalog endpoints
type BotHandler struct {
	bots   *service.BotService
	voices *service.VoiceCatalog
	logger *logger.Logger
}

// NewBotHandler creates a new bot handler
func NewBotHandler(bots *service.BotService, voices *service.VoiceCatalog, logger *logger.Logger) *BotHandler {
	return &BotHandler{bots: bots, voices: voices, logger: logger}
}

func (h *BotHandler) CreateBot(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bot, err := h.bots.CreateBot(&req, userID)
	if err != nil {
		h.logger.LogError(err, "failed to create bot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, bot)
}

func (h *BotHandler) GetBot(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id format"})
		return
	}

	bot, err := h.bots.GetBot(id)
	if err != nil {
		if err == service.ErrBotNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
			return
		}
		h.logger.LogError(err, "failed to fetch bot", "bot_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, bot)
}

func (h *BotHandler) ListBots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bots, err := h.bots.ListBots(c.Query("category"), limit, offset)
	if err != nil {
		h.logger.LogError(err, "failed to list bots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bots": bots, "count": len(bots)})
}

func (h *BotHandler) ListMyBots(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	bots, err := h.bots.ListBotsByCreator(userID)
	if err != nil {
		h.logger.LogError(err, "failed to list user bots", "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bots": bots, "count": len(bots)})
}

// ExploreBots serves the discovery feed: popular bots ranked by likes, or by
// chat volume with ?sort=chats.
func (h *BotHandler) ExploreBots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bots, err := h.bots.ExploreBots(c.Query("category"), c.Query("sort"), limit, offset)
	if err != nil {
		h.logger.LogError(err, "failed to load explore feed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bots": bots, "count": len(bots)})
}

func (h *BotHandler) SearchBots(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	bots, err := h.bots.SearchBots(q, limit)
	if err != nil {
		h.logger.LogError(err, "bot search failed", "query", q)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bots": bots, "count": len(bots)})
}

func (h *BotHandler) UpdateBot(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id format"})
		return
	}

	var req models.UpdateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bot, err := h.bots.UpdateBot(id, &req)
	if err != nil {
		if err == service.ErrBotNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, bot)
}

func (h *BotHandler) DeleteBot(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id format"})
		return
	}

	if err := h.bots.DeleteBot(id); err != nil {
		if err == service.ErrBotNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *BotHandler) LikeBot(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id format"})
		return
	}

	if err := h.bots.LikeBot(id); err != nil {
		if err == service.ErrBotNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// Voice catalog endpoints

func (h *BotHandler) CreateVoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.voices.CreateVoice(&req, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, v)
}

func (h *BotHandler) ListVoices(c *gin.Context) {
	voices, err := h.voices.ListVoices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voices": voices, "count": len(voices)})
}

func (h *BotHandler) GetVoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id format"})
		return
	}

	v, err := h.voices.GetVoice(id)
	if err != nil {
		if err == service.ErrVoiceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *BotHandler) ListMyVoices(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	voices, err := h.voices.ListVoicesByCreator(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voices": voices, "count": len(voices)})
}

func (h *BotHandler) SearchVoices(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	voices, err := h.voices.SearchVoices(q, limit)
	if err != nil {
		h.logger.LogError(err, "voice search failed", "query", q)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voices": voices, "count": len(voices)})
}

func (h *BotHandler) UpdateVoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id format"})
		return
	}

	var req models.UpdateVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.voices.UpdateVoice(id, &req)
	if err != nil {
		if err == service.ErrVoiceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *BotHandler) DeleteVoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id format"})
		return
	}

	if err := h.voices.DeleteVoice(id); err != nil {
		switch err {
		case service.ErrVoiceNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Voice not found"})
		case service.ErrVoiceInUse:
			c.JSON(http.StatusConflict, gin.H{"error": "Voice is in use by existing bots"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	return uint(id), err
}
