package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Error      string          `json:"error,omitempty"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) error

// QueueInterface defines the interface for job queue operations
type QueueInterface interface {
	RegisterHandler(jobType JobType, handler JobHandler)
	Enqueue(job *Job) error
}

// Queue is a database-backed job queue. Jobs survive restarts and retry
// with exponential backoff up to their max retry count.
type Queue struct {
	db       *gorm.DB
	handlers map[JobType]JobHandler
	interval time.Duration
	stop     chan struct{}
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{
		db:       db,
		handlers: make(map[JobType]JobHandler),
		interval: 5 * time.Second,
		stop:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(job *Job) error {
	job.Status = JobStatusPending
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	if err := q.db.Create(job).Error; err != nil {
		return fmt.Errorf("error enqueueing job: %w", err)
	}
	return nil
}

// ProcessJobs polls for runnable jobs until Stop is called. Run it in a
// goroutine from main.
func (q *Queue) ProcessJobs() {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
			q.processBatch()
		}
	}
}

// Stop stops the job processor
func (q *Queue) Stop() {
	close(q.stop)
}

func (q *Queue) processBatch() {
	var jobs []Job
	now := time.Now()
	err := q.db.Where("status = ? AND (next_retry IS NULL OR next_retry <= ?)", JobStatusPending, now).
		Order("created_at ASC").Limit(10).Find(&jobs).Error
	if err != nil {
		log.Printf("Error fetching pending jobs: %v", err)
		return
	}

	for _, job := range jobs {
		q.runJob(job)
	}
}

func (q *Queue) runJob(job Job) {
	// Claim the job; a second processor loses the conditional update.
	res := q.db.Model(&Job{}).
		Where("id = ? AND status = ?", job.ID, JobStatusPending).
		UpdateColumn("status", JobStatusProcessing)
	if res.Error != nil || res.RowsAffected == 0 {
		return
	}

	handler, ok := q.handlers[job.Type]
	if !ok {
		log.Printf("No handler registered for job type %s", job.Type)
		q.db.Model(&Job{}).Where("id = ?", job.ID).
			UpdateColumns(map[string]interface{}{"status": JobStatusFailed, "error": "no handler registered"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := handler(ctx, job); err != nil {
		q.failJob(job, err)
		return
	}

	q.db.Model(&Job{}).Where("id = ?", job.ID).UpdateColumn("status", JobStatusCompleted)
}

func (q *Queue) failJob(job Job, jobErr error) {
	job.RetryCount++
	if job.RetryCount >= job.MaxRetries {
		q.db.Model(&Job{}).Where("id = ?", job.ID).
			UpdateColumns(map[string]interface{}{
				"status":      JobStatusFailed,
				"retry_count": job.RetryCount,
				"error":       jobErr.Error(),
			})
		log.Printf("Job %s (%s) failed permanently: %v", job.ID, job.Type, jobErr)
		return
	}

	// Exponential backoff: 30s, 60s, 120s, ...
	delay := time.Duration(30*(1<<(job.RetryCount-1))) * time.Second
	next := time.Now().Add(delay)
	q.db.Model(&Job{}).Where("id = ?", job.ID).
		UpdateColumns(map[string]interface{}{
			"status":      JobStatusPending,
			"retry_count": job.RetryCount,
			"next_retry":  next,
			"error":       jobErr.Error(),
		})
}
