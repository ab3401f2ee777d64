package campaigns

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getyourshare/backend/internal/apperrors"
	"github.com/getyourshare/backend/internal/models"
)

// CampaignService reads and maintains per-campaign commission settings
type CampaignService struct {
	db *gorm.DB
}

// NewCampaignService creates a new campaign service
func NewCampaignService(db *gorm.DB) *CampaignService {
	return &CampaignService{db: db}
}

// GetSettings returns the settings row for a campaign, or nil when the
// campaign runs on platform defaults.
func (s *CampaignService) GetSettings(campaignID uuid.UUID) (*models.CampaignSettings, error) {
	var settings models.CampaignSettings
	if err := s.db.Where("campaign_id = ?", campaignID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStoreError("get campaign settings", err)
	}
	return &settings, nil
}

// UpsertSettingsInput is the input for creating or updating campaign settings
type UpsertSettingsInput struct {
	CampaignID          uuid.UUID `json:"campaign_id"`
	CommissionThreshold float64   `json:"commission_threshold"`
	PercentageRate      float64   `json:"percentage_rate"`
	FixedAmount         float64   `json:"fixed_amount"`
	AutoStopOnDepletion bool      `json:"auto_stop_on_depletion"`
}

// UpsertSettings creates or updates the settings row for a campaign
func (s *CampaignService) UpsertSettings(input UpsertSettingsInput) (*models.CampaignSettings, error) {
	if input.CampaignID == uuid.Nil {
		return nil, apperrors.NewValidationError("campaign ID is required")
	}
	if input.PercentageRate < 0 || input.PercentageRate > 100 {
		return nil, apperrors.NewValidationError("percentage rate must be between 0 and 100")
	}
	if input.CommissionThreshold < 0 || input.FixedAmount < 0 {
		return nil, apperrors.NewValidationError("threshold and fixed amount must not be negative")
	}

	var settings models.CampaignSettings
	err := s.db.Where("campaign_id = ?", input.CampaignID).First(&settings).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewStoreError("get campaign settings", err)
		}
		settings = models.CampaignSettings{
			CampaignID:          input.CampaignID,
			CommissionThreshold: input.CommissionThreshold,
			PercentageRate:      input.PercentageRate,
			FixedAmount:         input.FixedAmount,
			AutoStopOnDepletion: input.AutoStopOnDepletion,
			Status:              models.CampaignStatusActive,
		}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, apperrors.NewStoreError("create campaign settings", err)
		}
		return &settings, nil
	}

	settings.CommissionThreshold = input.CommissionThreshold
	settings.PercentageRate = input.PercentageRate
	settings.FixedAmount = input.FixedAmount
	settings.AutoStopOnDepletion = input.AutoStopOnDepletion
	if err := s.db.Save(&settings).Error; err != nil {
		return nil, apperrors.NewStoreError("update campaign settings", err)
	}
	return &settings, nil
}

// Pause stops a campaign from accepting new leads. No-op when already paused.
func (s *CampaignService) Pause(campaignID uuid.UUID) error {
	res := s.db.Model(&models.CampaignSettings{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.CampaignStatusActive).
		UpdateColumn("status", models.CampaignStatusPaused)
	if res.Error != nil {
		return apperrors.NewStoreError("pause campaign", res.Error)
	}
	return nil
}

// Resume reactivates a paused campaign
func (s *CampaignService) Resume(campaignID uuid.UUID) error {
	res := s.db.Model(&models.CampaignSettings{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.CampaignStatusPaused).
		UpdateColumn("status", models.CampaignStatusActive)
	if res.Error != nil {
		return apperrors.NewStoreError("resume campaign", res.Error)
	}
	return nil
}
