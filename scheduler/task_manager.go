package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"pricehound/models"
	"pricehound/services"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when no more discovery tasks can be queued.
var ErrQueueFull = errors.New("task queue is full")

const (
	queueSize     = 100
	taskRetention = time.Hour
	cleanupEvery  = 5 * time.Minute
)

// TaskManager runs price discoveries in the background on a fixed pool of workers.
type TaskManager struct {
	tasks      map[string]*models.DiscoveryTask
	taskQueue  chan *models.DiscoveryTask
	maxWorkers int
	discoverer services.Discoverer
	mutex      sync.RWMutex
	active     int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
	logger     *zap.Logger
}

// NewTaskManager starts maxWorkers workers running discoverer.
func NewTaskManager(discoverer services.Discoverer, maxWorkers int, logger *zap.Logger) *TaskManager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	tm := &TaskManager{
		tasks:      make(map[string]*models.DiscoveryTask),
		taskQueue:  make(chan *models.DiscoveryTask, queueSize),
		maxWorkers: maxWorkers,
		discoverer: discoverer,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("task-manager"),
	}

	for i := 0; i < maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker()
	}
	tm.wg.Add(1)
	go tm.cleanupLoop()

	tm.logger.Info("Task manager started", zap.Int("workers", maxWorkers))
	return tm
}

// Submit queues a discovery for req.
func (tm *TaskManager) Submit(req models.SearchRequest) (*models.DiscoveryTask, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	task := models.NewDiscoveryTask(req)

	tm.mutex.Lock()
	tm.tasks[task.ID] = task
	tm.mutex.Unlock()

	select {
	case tm.taskQueue <- task:
		tm.logger.Info("Task submitted", zap.String("task_id", task.ID), zap.String("product", req.ProductName))
		return task, nil
	default:
		task.Fail(ErrQueueFull.Error())
		tm.logger.Warn("Task rejected", zap.String("task_id", task.ID))
		return task, ErrQueueFull
	}
}

// Get returns a task by id.
func (tm *TaskManager) Get(taskID string) (*models.DiscoveryTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	task, ok := tm.tasks[taskID]
	return task, ok
}

// CleanupOldTasks removes completed tasks created more than maxAge ago.
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) int {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		tm.logger.Debug("Cleaned up old tasks", zap.Int("count", removed))
	}
	return removed
}

func (tm *TaskManager) cleanupLoop() {
	defer tm.wg.Done()
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tm.CleanupOldTasks(taskRetention)
		case <-tm.ctx.Done():
			return
		}
	}
}

func (tm *TaskManager) worker() {
	defer tm.wg.Done()
	for {
		select {
		case <-tm.ctx.Done():
			return
		case task := <-tm.taskQueue:
			tm.run(task)
		}
	}
}

func (tm *TaskManager) run(task *models.DiscoveryTask) {
	tm.mutex.Lock()
	tm.active++
	tm.mutex.Unlock()
	defer func() {
		tm.mutex.Lock()
		tm.active--
		tm.mutex.Unlock()
	}()

	task.Start()
	result := tm.discoverer.DiscoverPrices(tm.ctx, task.Request)
	if result.Status == models.StatusError && len(result.Candidates) == 0 && tm.ctx.Err() != nil {
		task.Fail("discovery interrupted")
		return
	}
	task.Complete(result)
	tm.logger.Info("Task completed",
		zap.String("task_id", task.ID),
		zap.String("status", string(result.Status)),
		zap.Duration("took", task.Duration()))
}

// Stop cancels running discoveries and waits for the workers to exit.
// Queued tasks that never started are marked failed.
func (tm *TaskManager) Stop() {
	tm.stopOnce.Do(func() {
		tm.cancel()
		tm.wg.Wait()
		for {
			select {
			case task := <-tm.taskQueue:
				task.Fail("task manager stopped")
			default:
				tm.logger.Info("Task manager stopped")
				return
			}
		}
	})
}

// TaskStats describes the pool and its tasks.
type TaskStats struct {
	TotalTasks    int                       `json:"total_tasks"`
	ActiveWorkers int                       `json:"active_workers"`
	MaxWorkers    int                       `json:"max_workers"`
	QueueSize     int                       `json:"queue_size"`
	TasksByStatus map[models.TaskStatus]int `json:"tasks_by_status"`
}

// Stats returns task manager statistics.
func (tm *TaskManager) Stats() TaskStats {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	stats := TaskStats{
		TotalTasks:    len(tm.tasks),
		ActiveWorkers: tm.active,
		MaxWorkers:    tm.maxWorkers,
		QueueSize:     len(tm.taskQueue),
		TasksByStatus: make(map[models.TaskStatus]int),
	}
	for _, task := range tm.tasks {
		stats.TasksByStatus[task.Snapshot().Status]++
	}
	return stats
}
