package links

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getyourshare/backend/internal/apperrors"
	"github.com/getyourshare/backend/internal/models"
	"github.com/getyourshare/backend/internal/utils"
)

// maxShortCodeAttempts bounds the regenerate-and-retry loop on short code collisions
const maxShortCodeAttempts = 5

// LinkService issues and resolves tracking links
type LinkService struct {
	db      *gorm.DB
	baseURL string
}

// NewLinkService creates a new link service. baseURL is the public origin
// the redirect endpoint is served from.
func NewLinkService(db *gorm.DB, baseURL string) *LinkService {
	return &LinkService{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

// CreateLinkInput is the input for issuing a tracking link
type CreateLinkInput struct {
	InfluencerID   uuid.UUID  `json:"influencer_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	CampaignID     *uuid.UUID `json:"campaign_id,omitempty"`
	DestinationURL string     `json:"destination_url"`
}

// CreateLinkResult is the issued link plus its public tracking URL
type CreateLinkResult struct {
	LinkID      uuid.UUID `json:"link_id"`
	ShortCode   string    `json:"short_code"`
	TrackingURL string    `json:"tracking_url"`
}

// CreateLink issues a new tracking link. Short codes are derived from a hash
// so collisions are possible; creation retries with a fresh salt a bounded
// number of times when the store rejects a duplicate code.
func (s *LinkService) CreateLink(input CreateLinkInput) (*CreateLinkResult, error) {
	if input.DestinationURL == "" {
		return nil, apperrors.NewValidationError("destination URL is required")
	}
	if input.InfluencerID == uuid.Nil {
		return nil, apperrors.NewValidationError("influencer ID is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, apperrors.NewValidationError("product ID is required")
	}

	linkID := uuid.New()

	var lastErr error
	for attempt := 0; attempt < maxShortCodeAttempts; attempt++ {
		code, err := utils.GenerateShortCode(linkID.String())
		if err != nil {
			return nil, apperrors.NewStoreError("generate short code", err)
		}

		link := models.TrackingLink{
			Base:           models.Base{ID: linkID},
			InfluencerID:   input.InfluencerID,
			ProductID:      input.ProductID,
			CampaignID:     input.CampaignID,
			DestinationURL: input.DestinationURL,
			ShortCode:      code,
			Status:         models.LinkStatusActive,
		}

		err = s.db.Create(&link).Error
		if err == nil {
			return &CreateLinkResult{
				LinkID:      linkID,
				ShortCode:   code,
				TrackingURL: fmt.Sprintf("%s/r/%s", s.baseURL, code),
			}, nil
		}
		if !isDuplicateKeyError(err) {
			return nil, apperrors.NewStoreError("create link", err)
		}
		lastErr = err
	}

	return nil, apperrors.NewStoreError("create link", fmt.Errorf("short code collisions exhausted %d attempts: %w", maxShortCodeAttempts, lastErr))
}

// Resolve looks up an active link by short code. Unknown and disabled codes
// are both reported as not found.
func (s *LinkService) Resolve(shortCode string) (*models.TrackingLink, error) {
	var link models.TrackingLink
	if err := s.db.Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("tracking link")
		}
		return nil, apperrors.NewStoreError("resolve link", err)
	}
	if link.Status != models.LinkStatusActive {
		return nil, apperrors.NewNotFoundError("tracking link")
	}
	return &link, nil
}

// GetLink gets a link by ID regardless of status
func (s *LinkService) GetLink(linkID uuid.UUID) (*models.TrackingLink, error) {
	var link models.TrackingLink
	if err := s.db.First(&link, "id = ?", linkID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("tracking link")
		}
		return nil, apperrors.NewStoreError("get link", err)
	}
	return &link, nil
}

// ListLinks returns all links issued to a promoter, newest first
func (s *LinkService) ListLinks(influencerID uuid.UUID) ([]models.TrackingLink, error) {
	var list []models.TrackingLink
	if err := s.db.Where("influencer_id = ?", influencerID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, apperrors.NewStoreError("list links", err)
	}
	return list, nil
}

// DisableLink administratively disables a link so it no longer resolves
func (s *LinkService) DisableLink(linkID uuid.UUID) error {
	res := s.db.Model(&models.TrackingLink{}).
		Where("id = ?", linkID).
		UpdateColumn("status", models.LinkStatusDisabled)
	if res.Error != nil {
		return apperrors.NewStoreError("disable link", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("tracking link")
	}
	return nil
}

// isDuplicateKeyError detects store uniqueness violations across drivers
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
