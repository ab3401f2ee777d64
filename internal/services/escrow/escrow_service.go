package escrow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getyourshare/backend/internal/apperrors"
	"github.com/getyourshare/backend/internal/models"
)

// DefaultAlertCooldown is the minimum interval between low balance alerts
// for a single deposit.
const DefaultAlertCooldown = 24 * time.Hour

// EscrowService manages merchant prepaid deposits. Every money mutation is
// a single conditional UPDATE at the store so concurrent callers cannot race
// past the balance check.
type EscrowService struct {
	db            *gorm.DB
	alertCooldown time.Duration
}

// NewEscrowService creates a new escrow service
func NewEscrowService(db *gorm.DB) *EscrowService {
	return &EscrowService{db: db, alertCooldown: DefaultAlertCooldown}
}

// NewEscrowServiceWithCooldown creates an escrow service with a custom alert cooldown
func NewEscrowServiceWithCooldown(db *gorm.DB, cooldown time.Duration) *EscrowService {
	return &EscrowService{db: db, alertCooldown: cooldown}
}

// GetDeposit gets a deposit by ID
func (s *EscrowService) GetDeposit(depositID uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := s.db.First(&deposit, "id = ?", depositID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("deposit")
		}
		return nil, apperrors.NewStoreError("get deposit", err)
	}
	return &deposit, nil
}

// FindActiveDeposit resolves the active deposit for a merchant. A deposit
// scoped to the given campaign wins over the merchant-wide one.
func (s *EscrowService) FindActiveDeposit(merchantID uuid.UUID, campaignID *uuid.UUID) (*models.Deposit, error) {
	return s.findActiveDeposit(s.db, merchantID, campaignID)
}

// FindActiveDepositWithTx resolves the active deposit using an existing transaction
func (s *EscrowService) FindActiveDepositWithTx(tx *gorm.DB, merchantID uuid.UUID, campaignID *uuid.UUID) (*models.Deposit, error) {
	return s.findActiveDeposit(tx, merchantID, campaignID)
}

func (s *EscrowService) findActiveDeposit(tx *gorm.DB, merchantID uuid.UUID, campaignID *uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit

	if campaignID != nil {
		err := tx.Where("merchant_id = ? AND campaign_id = ? AND status = ?",
			merchantID, *campaignID, models.DepositStatusActive).First(&deposit).Error
		if err == nil {
			return &deposit, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewStoreError("find deposit", err)
		}
	}

	err := tx.Where("merchant_id = ? AND campaign_id IS NULL AND status = ?",
		merchantID, models.DepositStatusActive).First(&deposit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("active deposit")
		}
		return nil, apperrors.NewStoreError("find deposit", err)
	}
	return &deposit, nil
}

// Fund credits a merchant's deposit, creating it on first funding. A
// depleted deposit returns to active once funded above zero.
func (s *EscrowService) Fund(merchantID uuid.UUID, campaignID *uuid.UUID, amount, alertThreshold float64) (*models.Deposit, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("funding amount must be positive")
	}

	var deposit *models.Deposit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := s.findDepositForFunding(tx, merchantID, campaignID)
		if err != nil {
			return err
		}

		if found == nil {
			found = &models.Deposit{
				MerchantID:     merchantID,
				CampaignID:     campaignID,
				CurrentBalance: 0,
				ReservedAmount: 0,
				AlertThreshold: alertThreshold,
				Status:         models.DepositStatusActive,
			}
			if err := tx.Create(found).Error; err != nil {
				return apperrors.NewStoreError("create deposit", err)
			}
		}

		res := tx.Model(&models.Deposit{}).Where("id = ?", found.ID).
			UpdateColumns(map[string]interface{}{
				"current_balance": gorm.Expr("current_balance + ?", amount),
				"status":          models.DepositStatusActive,
			})
		if res.Error != nil {
			return apperrors.NewStoreError("fund deposit", res.Error)
		}

		if err := tx.First(found, "id = ?", found.ID).Error; err != nil {
			return apperrors.NewStoreError("reload deposit", err)
		}

		entry := models.EscrowEntry{
			DepositID:    found.ID,
			Type:         models.EscrowEntryCredit,
			Amount:       amount,
			BalanceAfter: found.CurrentBalance,
			Description:  "merchant funding",
		}
		if err := tx.Create(&entry).Error; err != nil {
			return apperrors.NewStoreError("create escrow entry", err)
		}

		deposit = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

func (s *EscrowService) findDepositForFunding(tx *gorm.DB, merchantID uuid.UUID, campaignID *uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit
	query := tx.Where("merchant_id = ?", merchantID)
	if campaignID != nil {
		query = query.Where("campaign_id = ?", *campaignID)
	} else {
		query = query.Where("campaign_id IS NULL")
	}
	if err := query.First(&deposit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStoreError("find deposit", err)
	}
	return &deposit, nil
}

// Reserve places a provisional hold on escrow funds. The availability check
// and the increment happen in one conditional UPDATE; a concurrent reserve
// cannot pass the check on funds this one takes.
func (s *EscrowService) Reserve(depositID uuid.UUID, amount float64) error {
	return s.ReserveWithTx(s.db, depositID, amount)
}

// ReserveWithTx places a reservation using an existing transaction
func (s *EscrowService) ReserveWithTx(tx *gorm.DB, depositID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return apperrors.NewValidationError("reserve amount must be positive")
	}

	res := tx.Model(&models.Deposit{}).
		Where("id = ? AND status = ? AND current_balance - reserved_amount >= ?",
			depositID, models.DepositStatusActive, amount).
		UpdateColumn("reserved_amount", gorm.Expr("reserved_amount + ?", amount))
	if res.Error != nil {
		return apperrors.NewStoreError("reserve", res.Error)
	}
	if res.RowsAffected == 0 {
		var deposit models.Deposit
		if err := tx.First(&deposit, "id = ?", depositID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("deposit")
			}
			return apperrors.NewStoreError("reserve", err)
		}
		return &apperrors.InsufficientFundsError{DepositID: depositID.String(), Requested: amount}
	}
	return nil
}

// Release drops a reservation without deducting, floored at zero
func (s *EscrowService) Release(depositID uuid.UUID, amount float64) error {
	return s.ReleaseWithTx(s.db, depositID, amount)
}

// ReleaseWithTx drops a reservation using an existing transaction
func (s *EscrowService) ReleaseWithTx(tx *gorm.DB, depositID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return apperrors.NewValidationError("release amount must be positive")
	}

	res := tx.Model(&models.Deposit{}).Where("id = ?", depositID).
		UpdateColumn("reserved_amount",
			gorm.Expr("CASE WHEN reserved_amount >= ? THEN reserved_amount - ? ELSE 0 END", amount, amount))
	if res.Error != nil {
		return apperrors.NewStoreError("release", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("deposit")
	}
	return nil
}

// Deduct settles a reservation: balance and reserved amount drop together in
// one UPDATE. Idempotent per lead; re-applying a deduction for a lead that
// already has a debit entry is a no-op, so retried settlements are safe.
func (s *EscrowService) Deduct(depositID uuid.UUID, amount float64, leadID uuid.UUID, description string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.DeductWithTx(tx, depositID, amount, leadID, description)
	})
}

// DeductWithTx settles a reservation using an existing transaction
func (s *EscrowService) DeductWithTx(tx *gorm.DB, depositID uuid.UUID, amount float64, leadID uuid.UUID, description string) error {
	if amount <= 0 {
		return apperrors.NewValidationError("deduct amount must be positive")
	}

	// Idempotency guard: a debit entry for this lead means the deduction
	// already settled.
	var existing models.EscrowEntry
	err := tx.Where("lead_id = ? AND type = ?", leadID, models.EscrowEntryDebit).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewStoreError("deduct", err)
	}

	res := tx.Model(&models.Deposit{}).
		Where("id = ? AND current_balance >= ? AND reserved_amount >= ?", depositID, amount, amount).
		UpdateColumns(map[string]interface{}{
			"current_balance": gorm.Expr("current_balance - ?", amount),
			"reserved_amount": gorm.Expr("reserved_amount - ?", amount),
		})
	if res.Error != nil {
		return apperrors.NewStoreError("deduct", res.Error)
	}
	if res.RowsAffected == 0 {
		var deposit models.Deposit
		if err := tx.First(&deposit, "id = ?", depositID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("deposit")
			}
			return apperrors.NewStoreError("deduct", err)
		}
		return apperrors.NewConflictError("deduction of %.2f exceeds recorded balance or reservation for deposit %s", amount, depositID)
	}

	var deposit models.Deposit
	if err := tx.First(&deposit, "id = ?", depositID).Error; err != nil {
		return apperrors.NewStoreError("deduct", err)
	}

	lid := leadID
	entry := models.EscrowEntry{
		DepositID:    depositID,
		LeadID:       &lid,
		Type:         models.EscrowEntryDebit,
		Amount:       amount,
		BalanceAfter: deposit.CurrentBalance,
		Description:  description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return apperrors.NewStoreError("create escrow entry", err)
	}
	return nil
}

// ThresholdStatus is the outcome of a threshold check
type ThresholdStatus struct {
	Alert    bool `json:"alert"`
	Depleted bool `json:"depleted"`
}

// CheckThreshold compares the deposit balance to its alert threshold. The
// alert flag is rate limited through a conditional update of
// last_alert_sent_at so concurrent settlements cannot double-fire it.
func (s *EscrowService) CheckThreshold(depositID uuid.UUID) (ThresholdStatus, error) {
	var status ThresholdStatus

	deposit, err := s.GetDeposit(depositID)
	if err != nil {
		return status, err
	}

	status.Depleted = deposit.CurrentBalance <= 0

	if deposit.CurrentBalance <= deposit.AlertThreshold {
		now := time.Now()
		cutoff := now.Add(-s.alertCooldown)
		res := s.db.Model(&models.Deposit{}).
			Where("id = ? AND (last_alert_sent_at IS NULL OR last_alert_sent_at <= ?)", depositID, cutoff).
			UpdateColumn("last_alert_sent_at", now)
		if res.Error != nil {
			return status, apperrors.NewStoreError("check threshold", res.Error)
		}
		status.Alert = res.RowsAffected == 1
	}

	return status, nil
}

// MarkDepleted flags a deposit as depleted. No-op if already flagged.
func (s *EscrowService) MarkDepleted(depositID uuid.UUID) error {
	res := s.db.Model(&models.Deposit{}).
		Where("id = ? AND status = ?", depositID, models.DepositStatusActive).
		UpdateColumn("status", models.DepositStatusDepleted)
	if res.Error != nil {
		return apperrors.NewStoreError("mark depleted", res.Error)
	}
	return nil
}

// DepositStats aggregates a deposit's balance and journal totals
type DepositStats struct {
	DepositID      uuid.UUID `json:"deposit_id"`
	CurrentBalance float64   `json:"current_balance"`
	ReservedAmount float64   `json:"reserved_amount"`
	Available      float64   `json:"available"`
	TotalFunded    float64   `json:"total_funded"`
	TotalDeducted  float64   `json:"total_deducted"`
}

// GetDepositStats returns balance and journal aggregates for a deposit
func (s *EscrowService) GetDepositStats(depositID uuid.UUID) (*DepositStats, error) {
	deposit, err := s.GetDeposit(depositID)
	if err != nil {
		return nil, err
	}

	stats := &DepositStats{
		DepositID:      deposit.ID,
		CurrentBalance: deposit.CurrentBalance,
		ReservedAmount: deposit.ReservedAmount,
		Available:      deposit.CurrentBalance - deposit.ReservedAmount,
	}

	type sumRow struct {
		Type  models.EscrowEntryType
		Total float64
	}
	var rows []sumRow
	if err := s.db.Model(&models.EscrowEntry{}).
		Select("type, COALESCE(SUM(amount), 0) as total").
		Where("deposit_id = ?", depositID).
		Group("type").Scan(&rows).Error; err != nil {
		return nil, apperrors.NewStoreError("deposit stats", err)
	}
	for _, row := range rows {
		switch row.Type {
		case models.EscrowEntryCredit:
			stats.TotalFunded = row.Total
		case models.EscrowEntryDebit:
			stats.TotalDeducted = row.Total
		}
	}

	return stats, nil
}

// GetEntries returns the journal for a deposit, newest first
func (s *EscrowService) GetEntries(depositID uuid.UUID, page, pageSize int) ([]models.EscrowEntry, int64, error) {
	var entries []models.EscrowEntry
	var total int64

	if err := s.db.Model(&models.EscrowEntry{}).Where("deposit_id = ?", depositID).Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStoreError("count escrow entries", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("deposit_id = ?", depositID).
		Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding escrow entries: %w", err)
	}

	return entries, total, nil
}
