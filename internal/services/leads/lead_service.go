package leads

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getyourshare/backend/internal/apperrors"
	"github.com/getyourshare/backend/internal/models"
	"github.com/getyourshare/backend/internal/services/campaigns"
	"github.com/getyourshare/backend/internal/services/commission"
	"github.com/getyourshare/backend/internal/services/escrow"
	"github.com/getyourshare/backend/internal/services/notify"
	"github.com/getyourshare/backend/internal/services/tracking"
)

const (
	// MinLeadValue is the lowest estimated deal value a lead may carry
	MinLeadValue = 50.0

	// DefaultCommissionSplit is the promoter's share when no agreement exists
	DefaultCommissionSplit = 30.0
)

// LeadService orchestrates the lead lifecycle: creation reserves escrow
// funds, validation settles or releases them.
type LeadService struct {
	db        *gorm.DB
	escrow    *escrow.EscrowService
	campaigns *campaigns.CampaignService
	tracker   *tracking.TrackingService
	notifier  notify.Notifier
}

// NewLeadService creates a new lead service
func NewLeadService(db *gorm.DB, escrowSvc *escrow.EscrowService, campaignSvc *campaigns.CampaignService, tracker *tracking.TrackingService, notifier notify.Notifier) *LeadService {
	if notifier == nil {
		notifier = notify.NewLogNotifier()
	}
	return &LeadService{
		db:        db,
		escrow:    escrowSvc,
		campaigns: campaignSvc,
		tracker:   tracker,
		notifier:  notifier,
	}
}

// CreateLeadInput is the input for creating a lead
type CreateLeadInput struct {
	CampaignID     uuid.UUID                  `json:"campaign_id"`
	MerchantID     uuid.UUID                  `json:"merchant_id"`
	PromoterID     *uuid.UUID                 `json:"promoter_id,omitempty"`
	SalesRepID     *uuid.UUID                 `json:"sales_rep_id,omitempty"`
	EstimatedValue float64                    `json:"estimated_value"`
	CustomerData   models.JSON                `json:"customer_data,omitempty"`
	Source         string                     `json:"source"`
	Attribution    *tracking.AttributionClaim `json:"-"`
}

// CreateLead validates the input, computes the commission once, reserves
// escrow funds and persists the lead in pending state. Reservation and
// creation are one failure unit: on InsufficientFunds no lead exists.
func (s *LeadService) CreateLead(input CreateLeadInput) (*models.Lead, error) {
	if input.EstimatedValue < MinLeadValue {
		return nil, apperrors.NewValidationError("estimated value must be at least %.0f", MinLeadValue)
	}
	if (input.PromoterID == nil) == (input.SalesRepID == nil) {
		return nil, apperrors.NewValidationError("exactly one of promoter_id or sales_rep_id must be set")
	}
	if input.CampaignID == uuid.Nil || input.MerchantID == uuid.Nil {
		return nil, apperrors.NewValidationError("campaign_id and merchant_id are required")
	}

	settings, err := s.campaigns.GetSettings(input.CampaignID)
	if err != nil {
		return nil, err
	}
	if settings != nil && settings.Status == models.CampaignStatusPaused {
		return nil, apperrors.NewConflictError("campaign %s is paused", input.CampaignID)
	}

	result := commission.Calculate(input.EstimatedValue, commission.SettingsFromCampaign(settings))

	promoterShare := 0.0
	if input.PromoterID != nil {
		split, err := s.resolveCommissionSplit(input.MerchantID, *input.PromoterID, input.CampaignID)
		if err != nil {
			return nil, err
		}
		promoterShare = commission.SplitShare(result.Amount, split)
	}

	var lead *models.Lead
	err = s.db.Transaction(func(tx *gorm.DB) error {
		deposit, err := s.escrow.FindActiveDepositWithTx(tx, input.MerchantID, &input.CampaignID)
		if err != nil {
			return err
		}

		if err := s.escrow.ReserveWithTx(tx, deposit.ID, result.Amount); err != nil {
			return err
		}

		created := models.Lead{
			CampaignID:         input.CampaignID,
			MerchantID:         input.MerchantID,
			PromoterID:         input.PromoterID,
			SalesRepID:         input.SalesRepID,
			DepositID:          deposit.ID,
			EstimatedValue:     input.EstimatedValue,
			CommissionAmount:   result.Amount,
			CommissionType:     result.Type,
			PromoterCommission: promoterShare,
			Source:             input.Source,
			CustomerData:       input.CustomerData,
			Status:             models.LeadStatusPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperrors.NewStoreError("create lead", err)
		}

		record := models.ValidationRecord{
			LeadID:    created.ID,
			NewStatus: models.LeadStatusPending,
		}
		if err := tx.Create(&record).Error; err != nil {
			return apperrors.NewStoreError("create validation record", err)
		}

		if input.Attribution != nil {
			if err := s.tracker.RecordConversion(tx, input.Attribution.LinkID, input.EstimatedValue); err != nil {
				return err
			}
		}

		lead = &created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyNewLead(lead); err != nil {
		log.Printf("Warning: new lead notification failed for %s: %v", lead.ID, err)
	}

	return lead, nil
}

// resolveCommissionSplit finds the agreement split for a merchant and
// promoter. A campaign-scoped agreement wins over the general one; without
// any agreement the platform default applies.
func (s *LeadService) resolveCommissionSplit(merchantID, promoterID, campaignID uuid.UUID) (float64, error) {
	var agreement models.Agreement

	err := s.db.Where("merchant_id = ? AND promoter_id = ? AND campaign_id = ?",
		merchantID, promoterID, campaignID).First(&agreement).Error
	if err == nil {
		return agreement.CommissionSplit, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.NewStoreError("find agreement", err)
	}

	err = s.db.Where("merchant_id = ? AND promoter_id = ? AND campaign_id IS NULL",
		merchantID, promoterID).First(&agreement).Error
	if err == nil {
		return agreement.CommissionSplit, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.NewStoreError("find agreement", err)
	}

	return DefaultCommissionSplit, nil
}

// ValidateLeadInput is the input for a lead status transition
type ValidateLeadInput struct {
	LeadID          uuid.UUID         `json:"lead_id"`
	NewStatus       models.LeadStatus `json:"status"`
	ChangedBy       uuid.UUID         `json:"changed_by"`
	QualityScore    *int              `json:"quality_score,omitempty"`
	Feedback        string            `json:"feedback,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
}

// ValidationResult is the updated lead plus the threshold outcome the
// caller's notification collaborator acts on
type ValidationResult struct {
	Lead      *models.Lead           `json:"lead"`
	Threshold escrow.ThresholdStatus `json:"threshold"`
}

// ValidateLead transitions a pending lead to a terminal status. Validated
// and converted leads settle the reservation (deduct); rejected and lost
// leads release it. Any transition from a non-pending lead fails with
// ConflictError.
func (s *LeadService) ValidateLead(ctx context.Context, input ValidateLeadInput) (*ValidationResult, error) {
	switch input.NewStatus {
	case models.LeadStatusValidated, models.LeadStatusRejected, models.LeadStatusConverted, models.LeadStatusLost:
	default:
		return nil, apperrors.NewValidationError("invalid target status %q", input.NewStatus)
	}
	if input.QualityScore != nil && (*input.QualityScore < 1 || *input.QualityScore > 10) {
		return nil, apperrors.NewValidationError("quality score must be between 1 and 10")
	}

	var lead models.Lead
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lead, "id = ?", input.LeadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("lead")
			}
			return apperrors.NewStoreError("get lead", err)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":       input.NewStatus,
			"validated_at": now,
		}
		if input.QualityScore != nil {
			updates["quality_score"] = *input.QualityScore
		}

		// The status guard is part of the UPDATE so two concurrent
		// validations cannot both settle the same lead.
		res := tx.Model(&models.Lead{}).
			Where("id = ? AND status = ?", input.LeadID, models.LeadStatusPending).
			UpdateColumns(updates)
		if res.Error != nil {
			return apperrors.NewStoreError("update lead status", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NewConflictError("lead %s is %s, only pending leads can be validated", lead.ID, lead.Status)
		}

		switch input.NewStatus {
		case models.LeadStatusValidated, models.LeadStatusConverted:
			if err := s.escrow.DeductWithTx(tx, lead.DepositID, lead.CommissionAmount, lead.ID, "lead commission settlement"); err != nil {
				return err
			}
		case models.LeadStatusRejected, models.LeadStatusLost:
			if err := s.escrow.ReleaseWithTx(tx, lead.DepositID, lead.CommissionAmount); err != nil {
				return err
			}
		}

		record := models.ValidationRecord{
			LeadID:          lead.ID,
			PreviousStatus:  models.LeadStatusPending,
			NewStatus:       input.NewStatus,
			ChangedBy:       input.ChangedBy,
			QualityScore:    input.QualityScore,
			Feedback:        input.Feedback,
			RejectionReason: input.RejectionReason,
		}
		if err := tx.Create(&record).Error; err != nil {
			return apperrors.NewStoreError("create validation record", err)
		}

		lead.Status = input.NewStatus
		lead.ValidatedAt = &now
		lead.QualityScore = input.QualityScore
		return nil
	})
	if err != nil {
		return nil, err
	}

	threshold := s.checkThresholdAfterSettlement(ctx, &lead)

	return &ValidationResult{Lead: &lead, Threshold: threshold}, nil
}

// checkThresholdAfterSettlement runs the post-settlement threshold check and
// its side effects. The settlement is already committed; failures here are
// logged and must never surface as a settlement failure.
func (s *LeadService) checkThresholdAfterSettlement(ctx context.Context, lead *models.Lead) escrow.ThresholdStatus {
	var status escrow.ThresholdStatus
	err := apperrors.WithRetry(ctx, 3, func() error {
		var err error
		status, err = s.escrow.CheckThreshold(lead.DepositID)
		return err
	})
	if err != nil {
		log.Printf("Warning: threshold check failed for deposit %s: %v", lead.DepositID, err)
		return status
	}

	deposit, err := s.escrow.GetDeposit(lead.DepositID)
	if err != nil {
		log.Printf("Warning: could not load deposit %s after threshold check: %v", lead.DepositID, err)
		return status
	}

	if status.Depleted {
		if err := s.escrow.MarkDepleted(deposit.ID); err != nil {
			log.Printf("Warning: could not mark deposit %s depleted: %v", deposit.ID, err)
		}
		settings, err := s.campaigns.GetSettings(lead.CampaignID)
		if err != nil {
			log.Printf("Warning: could not load campaign settings for %s: %v", lead.CampaignID, err)
		} else if settings != nil && settings.AutoStopOnDepletion {
			if err := s.campaigns.Pause(lead.CampaignID); err != nil {
				log.Printf("Warning: could not pause campaign %s: %v", lead.CampaignID, err)
			}
		}
		if err := s.notifier.NotifyDepletion(deposit); err != nil {
			log.Printf("Warning: depletion notification failed for deposit %s: %v", deposit.ID, err)
		}
	} else if status.Alert {
		if err := s.notifier.NotifyLowBalance(deposit); err != nil {
			log.Printf("Warning: low balance notification failed for deposit %s: %v", deposit.ID, err)
		}
	}

	return status
}

// GetLead gets a lead by ID
func (s *LeadService) GetLead(leadID uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.First(&lead, "id = ?", leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("lead")
		}
		return nil, apperrors.NewStoreError("get lead", err)
	}
	return &lead, nil
}

// ListLeads returns a merchant's leads, optionally filtered by status
func (s *LeadService) ListLeads(merchantID uuid.UUID, status *models.LeadStatus, page, pageSize int) ([]models.Lead, int64, error) {
	query := s.db.Model(&models.Lead{}).Where("merchant_id = ?", merchantID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStoreError("count leads", err)
	}

	var list []models.Lead
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, apperrors.NewStoreError("list leads", err)
	}

	return list, total, nil
}

// GetValidationHistory returns the audit trail for a lead, oldest first
func (s *LeadService) GetValidationHistory(leadID uuid.UUID) ([]models.ValidationRecord, error) {
	var records []models.ValidationRecord
	if err := s.db.Where("lead_id = ?", leadID).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, apperrors.NewStoreError("validation history", err)
	}
	return records, nil
}
