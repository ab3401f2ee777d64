package models

import (
	"time"

	"github.com/google/uuid"
)

// DepositStatus represents the funding state of an escrow deposit
type DepositStatus string

const (
	DepositStatusActive   DepositStatus = "active"
	DepositStatusDepleted DepositStatus = "depleted"
)

// Deposit represents a merchant's prepaid escrow balance.
// Invariant: current_balance - reserved_amount >= 0 at all times.
type Deposit struct {
	Base
	MerchantID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"merchant_id"`
	CampaignID      *uuid.UUID    `gorm:"type:uuid;index" json:"campaign_id,omitempty"`
	CurrentBalance  float64       `gorm:"type:decimal(20,2);default:0" json:"current_balance"`
	ReservedAmount  float64       `gorm:"type:decimal(20,2);default:0" json:"reserved_amount"`
	AlertThreshold  float64       `gorm:"type:decimal(20,2);default:0" json:"alert_threshold"`
	Status          DepositStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	LastAlertSentAt *time.Time    `json:"last_alert_sent_at,omitempty"`
}

// TableName specifies the table name
func (Deposit) TableName() string {
	return "company_deposits"
}

// EscrowEntryType represents the direction of an escrow journal entry
type EscrowEntryType string

const (
	EscrowEntryCredit EscrowEntryType = "credit"
	EscrowEntryDebit  EscrowEntryType = "debit"
)

// EscrowEntry is the append-only journal of settled escrow movements.
// The unique index on (lead_id, type) makes deductions idempotent per lead.
type EscrowEntry struct {
	Base
	DepositID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"deposit_id"`
	LeadID       *uuid.UUID      `gorm:"type:uuid;index:idx_escrow_entry_lead,unique,where:lead_id IS NOT NULL" json:"lead_id,omitempty"`
	Type         EscrowEntryType `gorm:"type:varchar(10);not null;index:idx_escrow_entry_lead,unique,where:lead_id IS NOT NULL" json:"type"`
	Amount       float64         `gorm:"type:decimal(20,2);not null" json:"amount"`
	BalanceAfter float64         `gorm:"type:decimal(20,2)" json:"balance_after"`
	Description  string          `gorm:"type:text" json:"description"`
}

// TableName specifies the table name
func (EscrowEntry) TableName() string {
	return "escrow_entries"
}
