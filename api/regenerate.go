/*
regenerate.go - Background week regeneration

PURPOSE:
  Periodically regenerates the current week and the next WeeksAhead weeks
  so the board reflects new admissions, completed visits and the passing
  of days without anyone pressing a button.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on start
  - Each week goes through service.RegenerateWeek, so it takes the week
    lock and records a schedule run like any API call
  - A week locked by another caller is skipped until the next tick

CONFIGURATION:
  - Interval:   How often to regenerate (default: 1 hour)
  - WeeksAhead: Extra weeks after the current one (default: 1)
  - Enabled:    Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewRegenerationScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RegenerateWeek endpoint (manual regeneration)
  - service/scheduler.go: RegenerateWeek
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/lock"
	"github.com/warp/visit-engine/service"
	"go.uber.org/zap"
)

// RegenerationScheduler regenerates upcoming weeks on a ticker.
type RegenerationScheduler struct {
	Service    *service.Scheduler
	Interval   time.Duration
	WeeksAhead int
	Enabled    bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewRegenerationScheduler(svc *service.Scheduler, logger *zap.Logger) *RegenerationScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegenerationScheduler{
		Service:    svc,
		Interval:   time.Hour,
		WeeksAhead: 1,
		Enabled:    true,
		logger:     logger.Named("regenerator"),
	}
}

// Start begins the scheduler.
func (rs *RegenerationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.logger.Info("started", zap.Duration("interval", rs.Interval), zap.Int("weeks_ahead", rs.WeeksAhead))
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (rs *RegenerationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("stopped")
	}
}

func (rs *RegenerationScheduler) run() {
	defer rs.wg.Done()

	rs.RunNow(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// Weeks returns the week starts one pass regenerates.
func (rs *RegenerationScheduler) Weeks() []calendar.Date {
	current := calendar.WeekOf(rs.Service.Today())
	weeks := make([]calendar.Date, 0, rs.WeeksAhead+1)
	for i := 0; i <= rs.WeeksAhead; i++ {
		weeks = append(weeks, current.Next(i).Start)
	}
	return weeks
}

// RunNow performs one pass and reports how many weeks were regenerated.
func (rs *RegenerationScheduler) RunNow(ctx context.Context) int {
	done := 0
	for _, start := range rs.Weeks() {
		_, err := rs.Service.RegenerateWeek(ctx, start, service.TriggerScheduler, false)
		switch {
		case err == nil:
			done++
		case errors.Is(err, lock.ErrWeekLocked):
			rs.logger.Info("week locked, skipping", zap.String("week", start.String()))
		default:
			rs.logger.Error("regeneration failed", zap.String("week", start.String()), zap.Error(err))
		}
	}
	return done
}

// NextRunTime returns when the next pass will occur.
func (rs *RegenerationScheduler) NextRunTime() time.Time {
	return time.Now().Add(rs.Interval)
}
