package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyRunning is returned when starting a task twice.
	ErrAlreadyRunning = errors.New("task is already running")
	// ErrNotRunning is returned when stopping a task that is not running.
	ErrNotRunning = errors.New("task is not running")
)

// PeriodicTask runs one non-blocking step on its own ticker.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Step     func(now time.Time)
	Now      func() time.Time
	Logger   zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPeriodicTask initializes a task that calls step every interval.
func NewPeriodicTask(name string, interval time.Duration, step func(now time.Time), now func() time.Time, logger zerolog.Logger) *PeriodicTask {
	return &PeriodicTask{
		Name:     name,
		Interval: interval,
		Step:     step,
		Now:      now,
		Logger:   logger.With().Str("task", name).Logger(),
	}
}

// Start launches the task loop in a separate goroutine.
func (p *PeriodicTask) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		p.Logger.Warn().Msg("Task is already running")
		return ErrAlreadyRunning
	}
	if p.Interval <= 0 {
		return errors.New("task interval must be positive")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go func(ctx context.Context) {
		defer p.wg.Done()
		p.run(ctx)
	}(p.ctx)

	p.Logger.Debug().Dur("interval", p.Interval).Msg("Task started")
	return nil
}

// Stop cancels the loop and waits for the step in progress to return.
func (p *PeriodicTask) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		p.Logger.Warn().Msg("Task is not running")
		return ErrNotRunning
	}

	p.cancel()
	p.wg.Wait()

	p.ctx = nil
	p.cancel = nil

	p.Logger.Debug().Msg("Task stopped")
	return nil
}

func (p *PeriodicTask) run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Step(p.Now())
		case <-ctx.Done():
			return
		}
	}
}
