package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talktolisten/backend/internal/models"
	"talktolisten/backend/internal/voice"
	"talktolisten/backend/pkg/cache"

	"gorm.io/gorm"
)

var ErrBotNotFound = errors.New("bot not found")

// botCacheTTL bounds how stale a cached bot profile can get; voice turns
// resolve bots on every flush, so lookups must not hit the database each
// time.
const botCacheTTL = 5 * time.Minute

// BotService handles bot CRUD and resolves bots for the voice pipeline.
type BotService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewBotService creates a new bot service
func NewBotService(db *gorm.DB) *BotService {
	return &BotService{
		db:    db,
		cache: cache.NewCache(),
	}
}

func (s *BotService) CreateBot(req *models.CreateBotRequest, createdBy uint) (*models.Bot, error) {
	var v models.Voice
	if err := s.db.First(&v, req.VoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("voice %d does not exist", req.VoiceID)
		}
		return nil, err
	}

	bot := &models.Bot{
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		Description:      req.Description,
		ProfilePicture:   req.ProfilePicture,
		Category:         req.Category,
		VoiceID:          req.VoiceID,
		CreatedBy:        createdBy,
	}
	if err := s.db.Create(bot).Error; err != nil {
		return nil, err
	}
	return bot, nil
}

func (s *BotService) GetBot(id uint) (*models.Bot, error) {
	var bot models.Bot
	result := s.db.Preload("Voice").First(&bot, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBotNotFound
		}
		return nil, result.Error
	}
	return &bot, nil
}

func (s *BotService) UpdateBot(id uint, req *models.UpdateBotRequest) (*models.Bot, error) {
	bot, err := s.GetBot(id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		bot.Name = req.Name
	}
	if req.ShortDescription != "" {
		bot.ShortDescription = req.ShortDescription
	}
	if req.Description != "" {
		bot.Description = req.Description
	}
	if req.ProfilePicture != "" {
		bot.ProfilePicture = req.ProfilePicture
	}
	if req.Category != "" {
		bot.Category = req.Category
	}
	if req.VoiceID != 0 {
		bot.VoiceID = req.VoiceID
	}

	if err := s.db.Save(bot).Error; err != nil {
		return nil, err
	}
	s.cache.Delete(botCacheKey(id))
	return bot, nil
}

func (s *BotService) DeleteBot(id uint) error {
	result := s.db.Delete(&models.Bot{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBotNotFound
	}
	s.cache.Delete(botCacheKey(id))
	return nil
}

// ListBots returns bots, optionally filtered by category, newest first.
func (s *BotService) ListBots(category string, limit, offset int) ([]models.Bot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var bots []models.Bot
	query := s.db.Preload("Voice").Order("created_at DESC").Limit(limit).Offset(offset)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

// ListBotsByCreator returns the bots a user created, newest first.
func (s *BotService) ListBotsByCreator(userID uint) ([]models.Bot, error) {
	var bots []models.Bot
	err := s.db.Preload("Voice").
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&bots).Error
	if err != nil {
		return nil, err
	}
	return bots, nil
}

// ExploreBots returns popular bots, optionally within a category, ranked by
// likes or chat volume.
func (s *BotService) ExploreBots(category, sort string, limit, offset int) ([]models.Bot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	order := "likes DESC"
	if sort == "chats" {
		order = "num_chats DESC"
	}

	var bots []models.Bot
	query := s.db.Preload("Voice").Order(order).Limit(limit).Offset(offset)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

// SearchBots matches bot names and short descriptions against a query.
func (s *BotService) SearchBots(q string, limit int) ([]models.Bot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var bots []models.Bot
	pattern := "%" + q + "%"
	err := s.db.Preload("Voice").
		Where("name ILIKE ? OR short_description ILIKE ?", pattern, pattern).
		Order("num_chats DESC").
		Limit(limit).
		Find(&bots).Error
	if err != nil {
		return nil, err
	}
	return bots, nil
}

// LikeBot increments a bot's like counter.
func (s *BotService) LikeBot(id uint) error {
	result := s.db.Model(&models.Bot{}).Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBotNotFound
	}
	return nil
}

func botCacheKey(id uint) string {
	return fmt.Sprintf("bot:%d", id)
}

// LookupBot resolves a bot into the profile the voice pipeline needs,
// serving repeated lookups from the in-memory cache.
func (s *BotService) LookupBot(ctx context.Context, botID uint) (voice.BotProfile, error) {
	if cached, ok := s.cache.Get(botCacheKey(botID)); ok {
		if profile, ok := cached.(voice.BotProfile); ok {
			return profile, nil
		}
	}

	bot, err := s.GetBot(botID)
	if err != nil {
		return voice.BotProfile{}, err
	}
	if bot.Voice == nil {
		return voice.BotProfile{}, fmt.Errorf("bot %d has no voice configured", botID)
	}

	profile := voice.BotProfile{
		ID:            bot.ID,
		Name:          bot.Name,
		Description:   bot.Description,
		VoiceEndpoint: bot.Voice.Endpoint,
	}
	s.cache.SetWithExpiration(botCacheKey(botID), profile, botCacheTTL)
	return profile, nil
}
