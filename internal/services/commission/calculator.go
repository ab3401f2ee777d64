package commission

import (
	"math"

	"github.com/getyourshare/backend/internal/models"
)

// Settings holds the tiered commission rule for a campaign
type Settings struct {
	Threshold      float64
	PercentageRate float64
	FixedAmount    float64
}

// DefaultSettings returns the platform default commission rule
func DefaultSettings() Settings {
	return Settings{
		Threshold:      800,
		PercentageRate: 10,
		FixedAmount:    80,
	}
}

// SettingsFromCampaign maps stored campaign settings onto the calculator input
func SettingsFromCampaign(c *models.CampaignSettings) Settings {
	if c == nil {
		return DefaultSettings()
	}
	return Settings{
		Threshold:      c.CommissionThreshold,
		PercentageRate: c.PercentageRate,
		FixedAmount:    c.FixedAmount,
	}
}

// Result is the computed commission for a deal value
type Result struct {
	Amount      float64               `json:"amount"`
	Type        models.CommissionType `json:"type"`
	RateApplied float64               `json:"rate_applied"`
}

// Calculate maps an estimated deal value to a commission. Below the
// threshold the commission is a percentage of the value; at or above it the
// commission is the fixed amount. Pure; the result is computed once at lead
// creation and stored on the lead.
func Calculate(estimatedValue float64, settings Settings) Result {
	if estimatedValue < settings.Threshold {
		return Result{
			Amount:      round2(estimatedValue * settings.PercentageRate / 100),
			Type:        models.CommissionTypePercentage,
			RateApplied: settings.PercentageRate,
		}
	}
	return Result{
		Amount:      round2(settings.FixedAmount),
		Type:        models.CommissionTypeFixed,
		RateApplied: 0,
	}
}

// SplitShare returns the promoter's share of a commission for a given split percentage
func SplitShare(commission, splitPercentage float64) float64 {
	return round2(commission * splitPercentage / 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
