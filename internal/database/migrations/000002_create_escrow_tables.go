package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateEscrowTables creates the deposit, escrow journal, campaign settings
// and agreement tables
func CreateEscrowTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_escrow_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS company_deposits (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					merchant_id UUID NOT NULL,
					campaign_id UUID,
					current_balance DECIMAL(20,2) DEFAULT 0,
					reserved_amount DECIMAL(20,2) DEFAULT 0,
					alert_threshold DECIMAL(20,2) DEFAULT 0,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					last_alert_sent_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					CONSTRAINT chk_deposit_available CHECK (current_balance - reserved_amount >= 0)
				);

				CREATE INDEX idx_company_deposits_merchant ON company_deposits(merchant_id);
				CREATE INDEX idx_company_deposits_campaign ON company_deposits(campaign_id);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS escrow_entries (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					deposit_id UUID NOT NULL REFERENCES company_deposits(id),
					lead_id UUID,
					type VARCHAR(10) NOT NULL,
					amount DECIMAL(20,2) NOT NULL,
					balance_after DECIMAL(20,2),
					description TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_escrow_entries_deposit ON escrow_entries(deposit_id);
				CREATE UNIQUE INDEX idx_escrow_entry_lead ON escrow_entries(lead_id, type) WHERE lead_id IS NOT NULL;
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS campaign_settings (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					campaign_id UUID NOT NULL UNIQUE,
					commission_threshold DECIMAL(20,2) DEFAULT 800,
					percentage_rate DECIMAL(10,2) DEFAULT 10,
					fixed_amount DECIMAL(20,2) DEFAULT 80,
					auto_stop_on_depletion BOOLEAN DEFAULT FALSE,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS agreements (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					merchant_id UUID NOT NULL,
					promoter_id UUID NOT NULL,
					campaign_id UUID,
					commission_split_percentage DECIMAL(10,2) DEFAULT 30,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_agreements_merchant ON agreements(merchant_id);
				CREATE INDEX idx_agreements_promoter ON agreements(promoter_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS agreements;
				DROP TABLE IF EXISTS campaign_settings;
				DROP TABLE IF EXISTS escrow_entries;
				DROP TABLE IF EXISTS company_deposits;
			`).Error
		},
	}
}
