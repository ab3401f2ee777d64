package notify

import (
	"log"

	"github.com/getyourshare/backend/internal/models"
)

// Notifier is the narrow capability the engine needs for outbound alerts.
// The engine only decides that a notification must fire; delivery belongs to
// an external collaborator.
type Notifier interface {
	NotifyNewLead(lead *models.Lead) error
	NotifyLowBalance(deposit *models.Deposit) error
	NotifyDepletion(deposit *models.Deposit) error
}

// LogNotifier writes notifications to the process log. Used as the default
// when no delivery backend is wired.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyNewLead logs a new lead notification
func (n *LogNotifier) NotifyNewLead(lead *models.Lead) error {
	log.Printf("notify: new lead %s for merchant %s (commission %.2f)", lead.ID, lead.MerchantID, lead.CommissionAmount)
	return nil
}

// NotifyLowBalance logs a low balance alert
func (n *LogNotifier) NotifyLowBalance(deposit *models.Deposit) error {
	log.Printf("notify: deposit %s below alert threshold (balance %.2f, threshold %.2f)",
		deposit.ID, deposit.CurrentBalance, deposit.AlertThreshold)
	return nil
}

// NotifyDepletion logs a depletion alert
func (n *LogNotifier) NotifyDepletion(deposit *models.Deposit) error {
	log.Printf("notify: deposit %s depleted (balance %.2f)", deposit.ID, deposit.CurrentBalance)
	return nil
}
