package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is the default interval between cleanup runs.
const DefaultCleanupInterval = 10 * time.Minute

// CleanupConfig holds configuration for the cleanup job.
type CleanupConfig struct {
	CleanupInterval time.Duration // Interval between cleanup runs (default: 10m)
}

// DefaultCleanupConfig returns the default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		CleanupInterval: DefaultCleanupInterval,
	}
}

// CleanupJob periodically sweeps idle sessions out of a Store.
type CleanupJob struct {
	store  Store
	config CleanupConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(store Store, config CleanupConfig) *CleanupJob {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}

	return &CleanupJob{
		store:  store,
		config: config,
	}
}

// Start begins the periodic sweep in a goroutine. Calling Start on a running
// job is a no-op.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	j.running = true
	j.stopChan = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.stopChan, j.done)

	slog.Info("session cleanup job started", "interval", j.config.CleanupInterval)
}

// Stop stops the job and waits for the loop to exit.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopChan)
	done := j.done
	j.running = false
	j.mu.Unlock()

	<-done
	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single sweep immediately.
func (j *CleanupJob) RunOnce() int {
	return j.store.CleanupExpired()
}

// IsRunning returns whether the cleanup job is currently running.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *CleanupJob) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if removed := j.RunOnce(); removed > 0 {
				slog.Info("session cleanup completed",
					"removed", removed,
					"remaining", j.store.Len())
			}
		}
	}
}
