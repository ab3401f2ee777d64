package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"github.com/getyourshare/backend/internal/models"
	"github.com/getyourshare/backend/internal/services/escrow"
	"github.com/getyourshare/backend/internal/services/notify"
)

// DepositAlertJob sweeps deposits sitting at or below their alert threshold
// and fires the alerts the inline settlement path may have rate-limited
// away. CheckThreshold's last_alert_sent_at guard keeps the sweep from
// storming merchants that were already alerted.
type DepositAlertJob struct {
	db       *gorm.DB
	escrow   *escrow.EscrowService
	notifier notify.Notifier
}

// NewDepositAlertJob creates a new deposit alert sweep
func NewDepositAlertJob(db *gorm.DB, escrowSvc *escrow.EscrowService, notifier notify.Notifier) *DepositAlertJob {
	return &DepositAlertJob{db: db, escrow: escrowSvc, notifier: notifier}
}

// Run executes one sweep over at-risk deposits
func (j *DepositAlertJob) Run() {
	var deposits []models.Deposit
	err := j.db.Where("status = ? AND current_balance <= alert_threshold", models.DepositStatusActive).
		Find(&deposits).Error
	if err != nil {
		log.Printf("Error sweeping deposits for alerts: %v", err)
		return
	}

	for _, deposit := range deposits {
		status, err := j.escrow.CheckThreshold(deposit.ID)
		if err != nil {
			log.Printf("Error checking threshold for deposit %s: %v", deposit.ID, err)
			continue
		}

		if status.Depleted {
			if err := j.escrow.MarkDepleted(deposit.ID); err != nil {
				log.Printf("Error marking deposit %s depleted: %v", deposit.ID, err)
			}
			if err := j.notifier.NotifyDepletion(&deposit); err != nil {
				log.Printf("Error sending depletion alert for deposit %s: %v", deposit.ID, err)
			}
		} else if status.Alert {
			if err := j.notifier.NotifyLowBalance(&deposit); err != nil {
				log.Printf("Error sending low balance alert for deposit %s: %v", deposit.ID, err)
			}
		}
	}
}

// ScheduleDepositAlerts registers the sweep on the shared scheduler
func ScheduleDepositAlerts(scheduler *gocron.Scheduler, job *DepositAlertJob) error {
	_, err := scheduler.Every(1).Hour().StartAt(time.Now().Add(time.Minute)).Do(job.Run)
	return err
}
