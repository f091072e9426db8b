package models

import (
	"sync"
	"time"

	random "github.com/mazen160/go-random"
)

// TaskStatus represents the status of an async task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// DiscoveryTask is a price discovery running in the background.
type DiscoveryTask struct {
	mu          sync.RWMutex
	ID          string
	Request     SearchRequest
	Status      TaskStatus
	Message     string
	Result      *AggregatedResult
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewDiscoveryTask creates a queued task for req
func NewDiscoveryTask(req SearchRequest) *DiscoveryTask {
	return &DiscoveryTask{
		ID:        generateTaskID(),
		Request:   req,
		Status:    TaskStatusQueued,
		Message:   "Task queued for processing",
		CreatedAt: time.Now(),
	}
}

// Start marks the task as processing
func (t *DiscoveryTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Message = "Searching sources..."
	t.StartedAt = &now
}

// Complete marks the task as completed with result
func (t *DiscoveryTask) Complete(result *AggregatedResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.Message = result.Message
	t.Result = result
	t.CompletedAt = &now
}

// Fail marks the task as failed with error
func (t *DiscoveryTask) Fail(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.Status = TaskStatusFailed
	t.Message = "Discovery failed"
	t.Error = reason
	t.CompletedAt = &now
}

// TaskView is a point-in-time copy of a DiscoveryTask.
type TaskView struct {
	ID          string            `json:"id"`
	Request     SearchRequest     `json:"request"`
	Status      TaskStatus        `json:"status"`
	Message     string            `json:"message"`
	Result      *AggregatedResult `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Snapshot returns a copy that is safe to serialize while workers run.
func (t *DiscoveryTask) Snapshot() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskView{
		ID:          t.ID,
		Request:     t.Request,
		Status:      t.Status,
		Message:     t.Message,
		Result:      t.Result,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

// IsCompleted returns true if the task is in a final state
func (t *DiscoveryTask) IsCompleted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// Duration returns the duration of the task
func (t *DiscoveryTask) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if t.CompletedAt != nil {
		end = *t.CompletedAt
	}
	return end.Sub(*t.StartedAt)
}

func generateTaskID() string {
	suffix, err := random.String(8)
	if err != nil {
		suffix = "00000000"
	}
	return "task_" + time.Now().Format("20060102150405") + "_" + suffix
}
