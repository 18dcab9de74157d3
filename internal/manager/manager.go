// Package manager implements the Queue Manager: it binds the generic
// Universal Scheduler to the check→download business flow — lane creation,
// retry policy, and per-lane notifications — as described in spec.md §4.4.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/watcherhq/wetvlo/internal/appctx"
	"github.com/watcherhq/wetvlo/internal/cookie"
	"github.com/watcherhq/wetvlo/internal/scheduler"
	"github.com/watcherhq/wetvlo/internal/tasks"
)

// Manager is the Queue Manager. It owns no lane state of its own — that
// lives in the Scheduler — only the business logic that decides what to do
// with a dispatched task.
type Manager struct {
	sched *scheduler.Scheduler
	app   *appctx.Context

	mu       sync.Mutex
	adapters map[string]ScrapeAdapter // keyed by domain
	breakers map[string]*gobreaker.CircuitBreaker[DownloadResult]

	downloader       Downloader
	cookies          CookieRefresher
	metrics          Metrics
	cookieFileLoader func(path string) ([]byte, error)
	logger           *slog.Logger
}

// New constructs a Manager and its Scheduler. downloader is required;
// cookies and metrics may be nil.
func New(app *appctx.Context, downloader Downloader, cookies CookieRefresher, metrics Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		app:              app,
		adapters:         make(map[string]ScrapeAdapter),
		breakers:         make(map[string]*gobreaker.CircuitBreaker[DownloadResult]),
		downloader:       downloader,
		cookies:          cookies,
		metrics:          metrics,
		cookieFileLoader: cookie.ParseNetscapeFile,
		logger:           logger.With("component", "queue_manager"),
	}
	m.sched = scheduler.New(m.execute, m.onWait, m.logger)
	return m
}

// RegisterAdapter associates a ScrapeAdapter with every series on domain.
func (m *Manager) RegisterAdapter(domain string, adapter ScrapeAdapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters[domain] = adapter
}

func (m *Manager) adapterFor(domain string) (ScrapeAdapter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.adapters[domain]
	return a, ok
}

func (m *Manager) breakerFor(domain string) *gobreaker.CircuitBreaker[DownloadResult] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[domain]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[DownloadResult](gobreaker.Settings{
		Name:        "download:" + domain,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn("download circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})
	m.breakers[domain] = b
	return b
}

func (m *Manager) onWait(lane string, wait time.Duration, next time.Time) {
	m.logger.Debug("scheduler idle", "lane", lane, "wait", wait, "next", next)
}

// AddSeriesCheck resolves the series' config, ensures its check and download
// lanes are registered, and enqueues the opening CheckTask for a fresh
// discovery session.
func (m *Manager) AddSeriesCheck(url string) error {
	rc, err := m.app.Registry().Resolve(url)
	if err != nil {
		return err
	}

	checkLane, err := tasks.CheckLaneName(url)
	if err != nil {
		return err
	}
	downloadLane, err := tasks.DownloadLaneName(url)
	if err != nil {
		return err
	}

	if !m.sched.HasQueue(checkLane) {
		if err := m.sched.RegisterQueue(checkLane, rc.Check.CheckInterval); err != nil {
			return err
		}
	}
	if !m.sched.HasQueue(downloadLane) {
		if err := m.sched.RegisterQueue(downloadLane, rc.Download.DownloadDelay); err != nil {
			return err
		}
	}

	task, err := tasks.NewCheckTask(url, 1, 0)
	if err != nil {
		return err
	}
	return m.sched.AddTask(checkLane, task, 0)
}

// AddEpisodes enqueues one DownloadTask per episode, staggered by
// i·downloadDelay so a burst from one check respects politeness within the
// same lane.
func (m *Manager) AddEpisodes(url string, episodes []tasks.Episode) error {
	rc, err := m.app.Registry().Resolve(url)
	if err != nil {
		return err
	}
	downloadLane, err := tasks.DownloadLaneName(url)
	if err != nil {
		return err
	}
	for i, ep := range episodes {
		task, err := tasks.NewDownloadTask(url, ep, 0)
		if err != nil {
			return err
		}
		delay := time.Duration(i) * rc.Download.DownloadDelay
		if err := m.sched.AddTask(downloadLane, task, delay); err != nil {
			return err
		}
	}
	return nil
}

// ClearQueues empties every lane, keeping cooldowns.
func (m *Manager) ClearQueues() { m.sched.ClearQueues() }

// ResetQueues empties every lane and clears cooldowns — the operator
// "force immediate" action.
func (m *Manager) ResetQueues() { m.sched.ResetQueues() }

// Start resumes the scheduler.
func (m *Manager) Start() { m.sched.Resume() }

// Stop halts new dispatch without interrupting an in-flight task.
func (m *Manager) Stop() { m.sched.Stop() }

// HasActiveProcessing reports whether there is queued or in-flight work.
func (m *Manager) HasActiveProcessing() bool {
	return m.sched.HasPendingTasks() || m.sched.IsExecutorBusy()
}

// Stats exposes scheduler introspection for the console/metrics layers.
func (m *Manager) Stats() map[string]any { return m.sched.GetStats() }

// execute is the single entry point dispatched by the Scheduler, routed by
// the concrete Task type.
func (m *Manager) execute(ctx context.Context, task tasks.Task, lane string) error {
	switch t := task.(type) {
	case *tasks.CheckTask:
		m.executeCheck(ctx, t, lane)
	case *tasks.DownloadTask:
		m.executeDownload(ctx, t, lane)
	default:
		m.logger.Error("unknown task type dispatched", "lane", lane, "type", fmt.Sprintf("%T", task))
		m.sched.MarkTaskComplete(lane, 0)
	}
	return nil
}
