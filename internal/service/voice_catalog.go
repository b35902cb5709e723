package service

import (
	"errors"

	"talktolisten/backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrVoiceNotFound = errors.New("voice not found")
	ErrVoiceInUse    = errors.New("voice is in use by existing bots")
)

// VoiceCatalog handles the registry of synthesis voices bots can speak with.
type VoiceCatalog struct {
	db *gorm.DB
}

// NewVoiceCatalog creates a new voice catalog
func NewVoiceCatalog(db *gorm.DB) *VoiceCatalog {
	return &VoiceCatalog{db: db}
}

func (s *VoiceCatalog) CreateVoice(req *models.CreateVoiceRequest, createdBy uint) (*models.Voice, error) {
	v := &models.Voice{
		Name:        req.Name,
		Description: req.Description,
		Endpoint:    req.Endpoint,
		Provider:    req.Provider,
		CreatedBy:   createdBy,
	}
	if v.Provider == "" {
		v.Provider = "elevenlabs"
	}
	if err := s.db.Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (s *VoiceCatalog) GetVoice(id uint) (*models.Voice, error) {
	var v models.Voice
	result := s.db.First(&v, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrVoiceNotFound
		}
		return nil, result.Error
	}
	return &v, nil
}

func (s *VoiceCatalog) ListVoices() ([]models.Voice, error) {
	var voices []models.Voice
	if err := s.db.Order("name ASC").Find(&voices).Error; err != nil {
		return nil, err
	}
	return voices, nil
}

func (s *VoiceCatalog) ListVoicesByCreator(userID uint) ([]models.Voice, error) {
	var voices []models.Voice
	if err := s.db.Where("created_by = ?", userID).Order("name ASC").Find(&voices).Error; err != nil {
		return nil, err
	}
	return voices, nil
}

func (s *VoiceCatalog) SearchVoices(q string, limit int) ([]models.Voice, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pattern := "%" + q + "%"
	var voices []models.Voice
	err := s.db.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&voices).Error
	if err != nil {
		return nil, err
	}
	return voices, nil
}

func (s *VoiceCatalog) UpdateVoice(id uint, req *models.UpdateVoiceRequest) (*models.Voice, error) {
	v, err := s.GetVoice(id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		v.Name = req.Name
	}
	if req.Description != "" {
		v.Description = req.Description
	}
	if req.Endpoint != "" {
		v.Endpoint = req.Endpoint
	}
	if req.Provider != "" {
		v.Provider = req.Provider
	}

	if err := s.db.Save(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (s *VoiceCatalog) DeleteVoice(id uint) error {
	var inUse int64
	if err := s.db.Model(&models.Bot{}).Where("voice_id = ?", id).Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return ErrVoiceInUse
	}

	result := s.db.Delete(&models.Voice{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoiceNotFound
	}
	return nil
}
