package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadStatus represents the lifecycle state of a sales lead
type LeadStatus string

const (
	LeadStatusPending   LeadStatus = "pending"
	LeadStatusValidated LeadStatus = "validated"
	LeadStatusRejected  LeadStatus = "rejected"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// CommissionType selects between the percentage and fixed commission tiers
type CommissionType string

const (
	CommissionTypePercentage CommissionType = "percentage"
	CommissionTypeFixed      CommissionType = "fixed"
)

// Lead represents a sales lead generated through attribution.
// Commission fields are computed once at creation and never mutated.
type Lead struct {
	Base
	CampaignID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"campaign_id"`
	MerchantID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"merchant_id"`
	PromoterID         *uuid.UUID     `gorm:"type:uuid;index" json:"promoter_id,omitempty"`
	SalesRepID         *uuid.UUID     `gorm:"type:uuid;index" json:"sales_rep_id,omitempty"`
	DepositID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"deposit_id"`
	EstimatedValue     float64        `gorm:"type:decimal(20,2);not null" json:"estimated_value"`
	CommissionAmount   float64        `gorm:"type:decimal(20,2);not null" json:"commission_amount"`
	CommissionType     CommissionType `gorm:"type:varchar(20);not null" json:"commission_type"`
	PromoterCommission float64        `gorm:"type:decimal(20,2);default:0" json:"promoter_commission"`
	Source             string         `gorm:"type:varchar(50)" json:"source"`
	CustomerData       JSON           `gorm:"type:jsonb" json:"customer_data"`
	Status             LeadStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	QualityScore       *int           `json:"quality_score,omitempty"`
	ValidatedAt        *time.Time     `json:"validated_at,omitempty"`
}

// TableName specifies the table name
func (Lead) TableName() string {
	return "leads"
}

// ValidationRecord is the append-only audit trail of lead status transitions
type ValidationRecord struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	LeadID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"lead_id"`
	PreviousStatus  LeadStatus `gorm:"type:varchar(20)" json:"previous_status"`
	NewStatus       LeadStatus `gorm:"type:varchar(20);not null" json:"new_status"`
	ChangedBy       uuid.UUID  `gorm:"type:uuid" json:"changed_by"`
	QualityScore    *int       `json:"quality_score,omitempty"`
	Feedback        string     `gorm:"type:text" json:"feedback"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName specifies the table name
func (ValidationRecord) TableName() string {
	return "lead_validations"
}

// BeforeCreate will set a UUID rather than numeric ID
func (r *ValidationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
