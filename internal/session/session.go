// Package session implements the Session Scheduler of spec.md §4.5: the
// outer control loop that arms one wake timer per series (startTime or
// cron), fires addSeriesCheck on each occurrence, and re-arms for the next
// one. It knows nothing about lanes, retries, or backoff — that is the
// Queue Manager's job; the Session Scheduler only decides *when* a series'
// discovery session begins.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/watcherhq/wetvlo/internal/appctx"
	"github.com/watcherhq/wetvlo/internal/config"
)

// QueueManager is the subset of the Queue Manager the Session Scheduler
// drives. Defined locally so tests can supply a fake, mirroring the
// teacher's Fetcher/Parser/Storage collaborator interfaces in
// internal/engine/engine.go.
type QueueManager interface {
	Start()
	Stop()
	AddSeriesCheck(url string) error
	ResetQueues()
	HasActiveProcessing() bool
}

// OnIdle is invoked whenever the soonest pending wake is more than zero away
// — the TTY front-end uses this to redraw its "next check at ..." line.
type OnIdle func(next time.Time, wait time.Duration)

// Scheduler is the Session Scheduler.
type Scheduler struct {
	app    *appctx.Context
	qm     QueueManager
	onIdle OnIdle
	logger *slog.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer // keyed by series URL
	nextWake map[string]time.Time
	stopped  bool
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Scheduler. onIdle may be nil.
func New(app *appctx.Context, qm QueueManager, onIdle OnIdle, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		app:      app,
		qm:       qm,
		onIdle:   onIdle,
		logger:   logger.With("component", "session_scheduler"),
		timers:   make(map[string]*time.Timer),
		nextWake: make(map[string]time.Time),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start resumes the Queue Manager and arms one wake timer per declared
// series.
func (s *Scheduler) Start() {
	s.qm.Start()
	s.armAll()
}

// Stop cancels every pending timer, halts the Queue Manager's dispatch,
// drops every queued task, and blocks until any currently-executing task
// returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for url, t := range s.timers {
		t.Stop()
		delete(s.timers, url)
	}
	s.mu.Unlock()

	s.cancel()
	s.qm.Stop()
	s.qm.ResetQueues()

	for s.qm.HasActiveProcessing() {
		time.Sleep(25 * time.Millisecond)
	}
}

// Reload swaps the AppContext's configuration registry and re-arms every
// series' wake timer against the new schedule. Lanes already registered on
// the Queue Manager keep the default cooldowns they were registered with;
// Reload does not update them. Cooldowns the Queue Manager passes
// explicitly on completion are read from the new registry on the next task.
func (s *Scheduler) Reload(reg *config.Registry) {
	s.app.ReloadConfig(reg)

	s.mu.Lock()
	for url, t := range s.timers {
		t.Stop()
		delete(s.timers, url)
	}
	s.nextWake = make(map[string]time.Time)
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return
	}
	s.armAll()
	s.logger.Info("session: config reloaded, timers re-armed")
}

// Trigger bypasses every lane's cooldown and start-time wait: it resets all
// queues and enqueues a fresh check for every series immediately.
// Non-blocking.
func (s *Scheduler) Trigger() {
	s.qm.ResetQueues()
	for _, rc := range s.app.Registry().ListSeries() {
		if err := s.qm.AddSeriesCheck(rc.URL); err != nil {
			s.logger.Error("session: trigger failed to enqueue series", "url", rc.URL, "error", err)
		}
	}
	s.logger.Info("session: triggered immediate check for all series")
}

func (s *Scheduler) armAll() {
	for _, rc := range s.app.Registry().ListSeries() {
		s.arm(rc)
	}
	s.notifyIdle()
}

func (s *Scheduler) arm(rc *config.ResolvedConfig) {
	now := s.now()
	next, err := nextOccurrence(rc, now)
	if err != nil {
		s.logger.Error("session: cannot compute next occurrence", "url", rc.URL, "error", err)
		return
	}

	delay := next.Sub(now)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.timers[rc.URL] = time.AfterFunc(delay, func() { s.fire(rc.URL) })
	s.nextWake[rc.URL] = next
	s.mu.Unlock()
}

func (s *Scheduler) fire(url string) {
	if err := s.qm.AddSeriesCheck(url); err != nil {
		s.logger.Error("session: failed to enqueue check on wake", "url", url, "error", err)
	}

	rc, err := s.app.Registry().Resolve(url)
	if err != nil {
		s.logger.Warn("session: series no longer in registry, not re-arming", "url", url)
		s.mu.Lock()
		delete(s.timers, url)
		delete(s.nextWake, url)
		s.mu.Unlock()
		return
	}
	s.arm(rc)
	s.notifyIdle()
}

func (s *Scheduler) notifyIdle() {
	if s.onIdle == nil {
		return
	}
	s.mu.Lock()
	var soonest time.Time
	found := false
	for _, t := range s.nextWake {
		if !found || t.Before(soonest) {
			soonest = t
			found = true
		}
	}
	s.mu.Unlock()
	if !found {
		return
	}
	wait := soonest.Sub(s.now())
	if wait > 0 {
		s.onIdle(soonest, wait)
	}
}

// nextOccurrence computes the next wake time for rc from now: the next
// cron firing when Cron is set, otherwise the next occurrence of StartTime
// (rolling over to tomorrow if today's has already passed).
func nextOccurrence(rc *config.ResolvedConfig, now time.Time) (time.Time, error) {
	if rc.Cron != "" {
		sched, err := cron.ParseStandard(rc.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("series %q: invalid cron %q: %w", rc.URL, rc.Cron, err)
		}
		return sched.Next(now), nil
	}
	return nextStartTime(rc.StartTime, now)
}

func nextStartTime(startTime string, now time.Time) (time.Time, error) {
	parts := strings.SplitN(startTime, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid startTime %q", startTime)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid startTime %q: %w", startTime, err)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid startTime %q: %w", startTime, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
