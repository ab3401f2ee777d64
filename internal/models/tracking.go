package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkStatus represents the lifecycle state of a tracking link
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "active"
	LinkStatusDisabled LinkStatus = "disabled"
)

// TrackingLink represents a trackable referral link issued to a promoter
type TrackingLink struct {
	Base
	InfluencerID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"influencer_id"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	CampaignID      *uuid.UUID `gorm:"type:uuid;index" json:"campaign_id,omitempty"`
	DestinationURL  string     `gorm:"type:text;not null" json:"destination_url"`
	ShortCode       string     `gorm:"type:varchar(16);uniqueIndex;not null" json:"short_code"`
	ClickCount      int64      `gorm:"default:0" json:"click_count"`
	ConversionCount int64      `gorm:"default:0" json:"conversion_count"`
	RevenueTotal    float64    `gorm:"type:decimal(20,2);default:0" json:"revenue_total"`
	Status          LinkStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
}

// TableName specifies the table name
func (TrackingLink) TableName() string {
	return "tracking_links"
}

// ClickEvent represents a single click on a tracking link. Append-only.
type ClickEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	LinkID    uuid.UUID `gorm:"type:uuid;not null;index" json:"link_id"`
	VisitorIP string    `gorm:"type:varchar(64)" json:"visitor_ip"`
	UserAgent string    `gorm:"type:varchar(1024)" json:"user_agent"`
	Referrer  string    `gorm:"type:varchar(1024)" json:"referrer"`
	ClickedAt time.Time `gorm:"index;not null" json:"clicked_at"`
}

// TableName specifies the table name
func (ClickEvent) TableName() string {
	return "click_logs"
}

// BeforeCreate will set a UUID rather than numeric ID
func (e *ClickEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
