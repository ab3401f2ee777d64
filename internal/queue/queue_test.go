package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJobType JobType = "test_job"

type testPayload struct {
	Message string `json:"message"`
}

func setupTestQueue(t *testing.T) (*Queue, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Job{}))
	return NewQueue(db), db
}

func TestEnqueueJob(t *testing.T) {
	q, db := setupTestQueue(t)

	payload, err := json.Marshal(testPayload{Message: "hello"})
	require.NoError(t, err)

	job := &Job{Type: testJobType, Payload: payload}
	require.NoError(t, q.Enqueue(job))
	assert.NotEmpty(t, job.ID)

	var stored Job
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, JobStatusPending, stored.Status)
	assert.Equal(t, 3, stored.MaxRetries)

	var decoded testPayload
	require.NoError(t, json.Unmarshal(stored.Payload, &decoded))
	assert.Equal(t, "hello", decoded.Message)
}

func TestProcessBatchRunsHandler(t *testing.T) {
	q, db := setupTestQueue(t)

	handled := make(chan Job, 1)
	q.RegisterHandler(testJobType, func(ctx context.Context, job Job) error {
		handled <- job
		return nil
	})

	job := &Job{Type: testJobType, Payload: []byte(`{"message":"run me"}`)}
	require.NoError(t, q.Enqueue(job))

	q.processBatch()

	select {
	case got := <-handled:
		assert.Equal(t, job.ID, got.ID)
	default:
		t.Fatal("handler was not invoked")
	}

	var stored Job
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, JobStatusCompleted, stored.Status)
}

func TestFailedJobRetriesWithBackoff(t *testing.T) {
	q, db := setupTestQueue(t)

	q.RegisterHandler(testJobType, func(ctx context.Context, job Job) error {
		return errors.New("transient failure")
	})

	job := &Job{Type: testJobType, Payload: []byte(`{}`)}
	require.NoError(t, q.Enqueue(job))

	q.processBatch()

	var stored Job
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, JobStatusPending, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.NextRetry)
	assert.True(t, stored.NextRetry.After(time.Now()))
	assert.Equal(t, "transient failure", stored.Error)

	// Not runnable again until next_retry passes
	q.processBatch()
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, 1, stored.RetryCount)
}

func TestJobFailsPermanentlyAfterMaxRetries(t *testing.T) {
	q, db := setupTestQueue(t)

	attempts := 0
	q.RegisterHandler(testJobType, func(ctx context.Context, job Job) error {
		attempts++
		return errors.New("still broken")
	})

	job := &Job{Type: testJobType, Payload: []byte(`{}`), MaxRetries: 2}
	require.NoError(t, q.Enqueue(job))

	for i := 0; i < 5; i++ {
		// Force retries due immediately
		db.Model(&Job{}).Where("id = ?", job.ID).UpdateColumn("next_retry", time.Now().Add(-time.Second))
		q.processBatch()
	}

	var stored Job
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	assert.Equal(t, 2, attempts)
}

func TestUnregisteredJobTypeFails(t *testing.T) {
	q, db := setupTestQueue(t)

	job := &Job{Type: "unknown_type", Payload: []byte(`{}`)}
	require.NoError(t, q.Enqueue(job))

	q.processBatch()

	var stored Job
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, "no handler registered", stored.Error)
}
