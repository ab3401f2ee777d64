package models

import (
	"github.com/google/uuid"
)

// CampaignStatus represents the running state of a campaign
type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
)

// CampaignSettings holds the commission rule and auto-stop flag for a campaign.
// Read-only input to the commission calculator.
type CampaignSettings struct {
	Base
	CampaignID          uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"campaign_id"`
	CommissionThreshold float64        `gorm:"type:decimal(20,2);default:800" json:"commission_threshold"`
	PercentageRate      float64        `gorm:"type:decimal(10,2);default:10" json:"percentage_rate"`
	FixedAmount         float64        `gorm:"type:decimal(20,2);default:80" json:"fixed_amount"`
	AutoStopOnDepletion bool           `gorm:"default:false" json:"auto_stop_on_depletion"`
	Status              CampaignStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
}

// TableName specifies the table name
func (CampaignSettings) TableName() string {
	return "campaign_settings"
}

// Agreement represents a negotiated commission split between a merchant and a promoter
type Agreement struct {
	Base
	MerchantID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"merchant_id"`
	PromoterID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"promoter_id"`
	CampaignID      *uuid.UUID `gorm:"type:uuid;index" json:"campaign_id,omitempty"`
	CommissionSplit float64    `gorm:"type:decimal(10,2);default:30" json:"commission_split_percentage"`
}

// TableName specifies the table name
func (Agreement) TableName() string {
	return "agreements"
}
