package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateTrackingTables creates the tracking link and click log tables
func CreateTrackingTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_tracking_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

				CREATE TABLE IF NOT EXISTS tracking_links (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					influencer_id UUID NOT NULL,
					product_id UUID NOT NULL,
					campaign_id UUID,
					destination_url TEXT NOT NULL,
					short_code VARCHAR(16) NOT NULL UNIQUE,
					click_count BIGINT DEFAULT 0,
					conversion_count BIGINT DEFAULT 0,
					revenue_total DECIMAL(20,2) DEFAULT 0,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_tracking_links_influencer ON tracking_links(influencer_id);
				CREATE INDEX idx_tracking_links_campaign ON tracking_links(campaign_id);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS click_logs (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					link_id UUID NOT NULL REFERENCES tracking_links(id),
					visitor_ip VARCHAR(64),
					user_agent VARCHAR(1024),
					referrer VARCHAR(1024),
					clicked_at TIMESTAMP WITH TIME ZONE NOT NULL
				);

				CREATE INDEX idx_click_logs_link ON click_logs(link_id);
				CREATE INDEX idx_click_logs_clicked_at ON click_logs(clicked_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS click_logs; DROP TABLE IF EXISTS tracking_links;`).Error
		},
	}
}
