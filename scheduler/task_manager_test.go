package scheduler

import (
	"context"
	"testing"
	"time"

	"pricehound/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingDiscoverer returns once release is closed or the worker context ends.
type blockingDiscoverer struct {
	release chan struct{}
}

func (d blockingDiscoverer) DiscoverPrices(ctx context.Context, req models.SearchRequest) *models.AggregatedResult {
	select {
	case <-d.release:
		return &models.AggregatedResult{ProductName: req.ProductName, Status: models.StatusSuccess, Message: "Found 1 offers"}
	case <-ctx.Done():
		return &models.AggregatedResult{ProductName: req.ProductName, Status: models.StatusError, Message: "canceled"}
	}
}

func released() blockingDiscoverer {
	d := blockingDiscoverer{release: make(chan struct{})}
	close(d.release)
	return d
}

func newTestTaskManager(t *testing.T, d blockingDiscoverer, workers int) *TaskManager {
	t.Helper()
	tm := NewTaskManager(d, workers, zap.NewNop())
	t.Cleanup(tm.Stop)
	return tm
}

func TestTaskManager_SubmitCompletes(t *testing.T) {
	tm := newTestTaskManager(t, released(), 2)

	task, err := tm.Submit(models.SearchRequest{ProductName: "Kindle Paperwhite"})
	require.NoError(t, err)
	assert.Contains(t, task.ID, "task_")

	got, ok := tm.Get(task.ID)
	require.True(t, ok)
	assert.Eventually(t, got.IsCompleted, time.Second, 5*time.Millisecond)

	view := got.Snapshot()
	assert.Equal(t, models.TaskStatusCompleted, view.Status)
	require.NotNil(t, view.Result)
	assert.Equal(t, "Kindle Paperwhite", view.Result.ProductName)
	assert.Equal(t, "Found 1 offers", view.Message)
	assert.NotNil(t, view.StartedAt)
	assert.NotNil(t, view.CompletedAt)

	stats := tm.Stats()
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 2, stats.MaxWorkers)
	assert.Equal(t, 1, stats.TasksByStatus[models.TaskStatusCompleted])
}

func TestTaskManager_SubmitInvalid(t *testing.T) {
	tm := newTestTaskManager(t, released(), 1)

	_, err := tm.Submit(models.SearchRequest{ProductName: "  "})
	assert.ErrorIs(t, err, models.ErrEmptyProductName)
	assert.Zero(t, tm.Stats().TotalTasks)

	_, ok := tm.Get("task_missing")
	assert.False(t, ok)
}

func TestTaskManager_QueueFull(t *testing.T) {
	d := blockingDiscoverer{release: make(chan struct{})}
	tm := newTestTaskManager(t, d, 1)

	_, err := tm.Submit(models.SearchRequest{ProductName: "Echo Dot"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tm.Stats().ActiveWorkers == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < queueSize; i++ {
		_, err := tm.Submit(models.SearchRequest{ProductName: "Echo Dot"})
		require.NoError(t, err)
	}

	task, err := tm.Submit(models.SearchRequest{ProductName: "Echo Dot"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, models.TaskStatusFailed, task.Snapshot().Status)
	assert.Equal(t, queueSize, tm.Stats().QueueSize)
}

func TestTaskManager_StopFailsPendingTasks(t *testing.T) {
	d := blockingDiscoverer{release: make(chan struct{})}
	tm := NewTaskManager(d, 1, zap.NewNop())

	running, err := tm.Submit(models.SearchRequest{ProductName: "Monitor LG"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tm.Stats().ActiveWorkers == 1 }, time.Second, 5*time.Millisecond)
	queued, err := tm.Submit(models.SearchRequest{ProductName: "Mouse Logitech"})
	require.NoError(t, err)

	tm.Stop()
	tm.Stop()

	assert.Equal(t, models.TaskStatusFailed, running.Snapshot().Status)
	assert.Equal(t, "discovery interrupted", running.Snapshot().Error)
	assert.Equal(t, models.TaskStatusFailed, queued.Snapshot().Status)
}

func TestTaskManager_CleanupOldTasks(t *testing.T) {
	d := blockingDiscoverer{release: make(chan struct{})}
	tm := newTestTaskManager(t, d, 1)

	pending, err := tm.Submit(models.SearchRequest{ProductName: "SSD Kingston"})
	require.NoError(t, err)
	assert.Zero(t, tm.CleanupOldTasks(0))

	close(d.release)
	require.Eventually(t, pending.IsCompleted, time.Second, 5*time.Millisecond)

	assert.Zero(t, tm.CleanupOldTasks(time.Hour))
	assert.Equal(t, 1, tm.CleanupOldTasks(0))
	_, ok := tm.Get(pending.ID)
	assert.False(t, ok)
}
