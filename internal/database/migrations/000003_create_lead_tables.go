package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateLeadTables creates the leads and validation audit tables
func CreateLeadTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_lead_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS leads (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					campaign_id UUID NOT NULL,
					merchant_id UUID NOT NULL,
					promoter_id UUID,
					sales_rep_id UUID,
					deposit_id UUID NOT NULL REFERENCES company_deposits(id),
					estimated_value DECIMAL(20,2) NOT NULL,
					commission_amount DECIMAL(20,2) NOT NULL,
					commission_type VARCHAR(20) NOT NULL,
					promoter_commission DECIMAL(20,2) DEFAULT 0,
					source VARCHAR(50),
					customer_data JSONB,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					quality_score INTEGER,
					validated_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					CONSTRAINT chk_lead_referrer CHECK (
						(promoter_id IS NULL) != (sales_rep_id IS NULL)
					)
				);

				CREATE INDEX idx_leads_merchant ON leads(merchant_id);
				CREATE INDEX idx_leads_campaign ON leads(campaign_id);
				CREATE INDEX idx_leads_status ON leads(status);
				CREATE INDEX idx_leads_deposit ON leads(deposit_id);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS lead_validations (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					lead_id UUID NOT NULL REFERENCES leads(id),
					previous_status VARCHAR(20),
					new_status VARCHAR(20) NOT NULL,
					changed_by UUID,
					quality_score INTEGER,
					feedback TEXT,
					rejection_reason TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_lead_validations_lead ON lead_validations(lead_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS lead_validations; DROP TABLE IF EXISTS leads;`).Error
		},
	}
}
