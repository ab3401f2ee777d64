package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getyourshare/backend/internal/models"
	"github.com/getyourshare/backend/internal/queue"
	"github.com/getyourshare/backend/internal/services/email"
)

// NotificationJobType is the job type for dispatching engine notifications
const NotificationJobType queue.JobType = "send_notification"

// NotificationKind identifies what the engine decided must be notified
type NotificationKind string

const (
	NotificationNewLead    NotificationKind = "new_lead"
	NotificationLowBalance NotificationKind = "low_balance"
	NotificationDepletion  NotificationKind = "depletion"
)

// NotificationJobPayload represents the payload for a notification job
type NotificationJobPayload struct {
	Kind      NotificationKind `json:"kind"`
	LeadID    *uuid.UUID       `json:"lead_id,omitempty"`
	DepositID *uuid.UUID       `json:"deposit_id,omitempty"`
}

// QueueNotifier implements notify.Notifier by enqueueing notification jobs,
// decoupling settlement latency from delivery.
type QueueNotifier struct {
	queue queue.QueueInterface
}

// NewQueueNotifier creates a queue-backed notifier
func NewQueueNotifier(q queue.QueueInterface) *QueueNotifier {
	return &QueueNotifier{queue: q}
}

// NotifyNewLead enqueues a new lead notification
func (n *QueueNotifier) NotifyNewLead(lead *models.Lead) error {
	id := lead.ID
	return n.enqueue(NotificationJobPayload{Kind: NotificationNewLead, LeadID: &id})
}

// NotifyLowBalance enqueues a low balance alert
func (n *QueueNotifier) NotifyLowBalance(deposit *models.Deposit) error {
	id := deposit.ID
	return n.enqueue(NotificationJobPayload{Kind: NotificationLowBalance, DepositID: &id})
}

// NotifyDepletion enqueues a depletion alert
func (n *QueueNotifier) NotifyDepletion(deposit *models.Deposit) error {
	id := deposit.ID
	return n.enqueue(NotificationJobPayload{Kind: NotificationDepletion, DepositID: &id})
}

func (n *QueueNotifier) enqueue(payload NotificationJobPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return n.queue.Enqueue(&queue.Job{
		Type:       NotificationJobType,
		Payload:    payloadBytes,
		MaxRetries: 3,
	})
}

// NotificationJob handles dispatching queued notifications
type NotificationJob struct {
	db    *gorm.DB
	email *email.EmailService
}

// NewNotificationJob creates a new notification job handler
func NewNotificationJob(db *gorm.DB, emailSvc *email.EmailService) *NotificationJob {
	return &NotificationJob{db: db, email: emailSvc}
}

// RegisterNotificationJobHandlers registers the notification job handler
func RegisterNotificationJobHandlers(q queue.QueueInterface, db *gorm.DB, emailSvc *email.EmailService) {
	handler := NewNotificationJob(db, emailSvc)
	q.RegisterHandler(NotificationJobType, handler.Process)
}

// Process dispatches a single queued notification
func (j *NotificationJob) Process(ctx context.Context, job queue.Job) error {
	var payload NotificationJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %w", err)
	}

	switch payload.Kind {
	case NotificationNewLead:
		if payload.LeadID == nil {
			return errors.New("new lead notification missing lead_id")
		}
		var lead models.Lead
		if err := j.db.First(&lead, "id = ?", *payload.LeadID).Error; err != nil {
			return fmt.Errorf("error loading lead %s: %w", *payload.LeadID, err)
		}
		return j.email.SendAlert(
			"New lead awaiting validation",
			fmt.Sprintf("Lead %s for merchant %s: estimated value %.2f, commission %.2f (%s).",
				lead.ID, lead.MerchantID, lead.EstimatedValue, lead.CommissionAmount, lead.CommissionType))

	case NotificationLowBalance:
		deposit, err := j.loadDeposit(payload.DepositID)
		if err != nil {
			return err
		}
		return j.email.SendAlert(
			"Escrow balance below alert threshold",
			fmt.Sprintf("Deposit %s for merchant %s is at %.2f (threshold %.2f). Top up to keep campaigns running.",
				deposit.ID, deposit.MerchantID, deposit.CurrentBalance, deposit.AlertThreshold))

	case NotificationDepletion:
		deposit, err := j.loadDeposit(payload.DepositID)
		if err != nil {
			return err
		}
		return j.email.SendAlert(
			"Escrow deposit depleted",
			fmt.Sprintf("Deposit %s for merchant %s is depleted (%.2f). New leads are blocked until it is funded.",
				deposit.ID, deposit.MerchantID, deposit.CurrentBalance))

	default:
		return fmt.Errorf("unknown notification kind %q", payload.Kind)
	}
}

func (j *NotificationJob) loadDeposit(id *uuid.UUID) (*models.Deposit, error) {
	if id == nil {
		return nil, errors.New("notification missing deposit_id")
	}
	var deposit models.Deposit
	if err := j.db.First(&deposit, "id = ?", *id).Error; err != nil {
		return nil, fmt.Errorf("error loading deposit %s: %w", *id, err)
	}
	return &deposit, nil
}
