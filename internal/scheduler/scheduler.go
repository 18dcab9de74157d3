// Package scheduler implements the Universal Scheduler: a cooperative,
// single-executor engine that serializes task dispatch across an arbitrary
// number of named lanes, honoring per-lane cooldowns and per-task delays,
// selecting fairly among ready lanes, and sleeping efficiently when nothing
// is ready. It knows nothing about check/download business semantics —
// that belongs to the Queue Manager, which is the scheduler's sole caller
// and sole executor implementation.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/watcherhq/wetvlo/internal/queue"
	"github.com/watcherhq/wetvlo/internal/tasks"
)

// Executor runs a single task dispatched from the given lane. Implementations
// are expected to call MarkTaskComplete or MarkTaskFailed on the scheduler
// themselves before returning — the scheduler only treats a non-terminated
// lane after Executor returns as an implementation bug and applies the
// lane's default cooldown as a safety net (see dispatch).
type Executor func(ctx context.Context, task tasks.Task, lane string) error

// OnWait is invoked whenever the scheduler computes a wait longer than one
// second before the next feasible dispatch. Threshold preserved verbatim
// from the source system — it does not fire for shorter or zero waits.
type OnWait func(lane string, wait time.Duration, nextTime time.Time)

const waitNotifyThreshold = time.Second

// Scheduler owns all typed queues (lanes), enforces at-most-one task
// globally in flight, applies round-robin fairness among ready lanes, and
// maintains a single pending timer for the next earliest feasible lane.
type Scheduler struct {
	mu sync.Mutex

	lanes   map[string]*queue.TypedQueue
	order   []string // registration order; round-robin walks this slice
	cursor  int
	busy    bool
	signals uint64 // terminal signals received so far; read by dispatch's safety net
	stopped bool
	timer   *time.Timer

	executor Executor
	onWait   OnWait
	now      func() time.Time
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. executor is required; onWait may be nil. The
// clock is time.Now.
func New(executor Executor, onWait OnWait, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		lanes:    make(map[string]*queue.TypedQueue),
		executor: executor,
		onWait:   onWait,
		now:      time.Now,
		logger:   logger.With("component", "scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterQueue creates a new lane with the given default cooldown. Fails if
// a lane with this name already exists — registration is idempotent-reject,
// not idempotent-replace, so callers must check HasQueue first if they are
// unsure.
func (s *Scheduler) RegisterQueue(name string, defaultCooldown time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lanes[name]; ok {
		return fmt.Errorf("%w: %s", tasks.ErrQueueAlreadyExists, name)
	}
	s.lanes[name] = queue.New(name, defaultCooldown, nil)
	s.order = append(s.order, name)
	return nil
}

// HasQueue reports whether a lane with this name is already registered.
func (s *Scheduler) HasQueue(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lanes[name]
	return ok
}

// AddTask enqueues a task at the tail of its lane, then re-evaluates
// scheduling.
func (s *Scheduler) AddTask(name string, task tasks.Task, delay time.Duration) error {
	q, err := s.queueFor(name)
	if err != nil {
		return err
	}
	q.Add(task, delay)
	s.scheduleNext()
	return nil
}

// AddPriorityTask enqueues a task at the head of its lane (the retry path),
// then re-evaluates scheduling.
func (s *Scheduler) AddPriorityTask(name string, task tasks.Task, delay time.Duration) error {
	q, err := s.queueFor(name)
	if err != nil {
		return err
	}
	q.AddFirst(task, delay)
	s.scheduleNext()
	return nil
}

func (s *Scheduler) queueFor(name string) (*queue.TypedQueue, error) {
	s.mu.Lock()
	q, ok := s.lanes[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", tasks.ErrQueueNotRegistered, name)
	}
	return q, nil
}

// MarkTaskComplete transitions a lane out of execution into cooldown after a
// successful task, then re-evaluates scheduling. cooldown of 0 uses the
// lane's registered default.
func (s *Scheduler) MarkTaskComplete(name string, cooldown time.Duration) {
	s.markDone(name, cooldown)
}

// MarkTaskFailed behaves identically to MarkTaskComplete from the
// scheduler's perspective — the scheduler does not distinguish success from
// failure, only busy from idle. The Queue Manager is the one that judges
// success vs. failure and picks the cooldown to pass in.
func (s *Scheduler) MarkTaskFailed(name string, cooldown time.Duration) {
	s.markDone(name, cooldown)
}

func (s *Scheduler) markDone(name string, cooldown time.Duration) {
	q, err := s.queueFor(name)
	if err != nil {
		s.logger.Warn("markDone on unknown lane", "lane", name, "error", err)
		return
	}
	q.MarkCompleted(cooldown)

	s.mu.Lock()
	s.busy = false
	s.signals++
	s.mu.Unlock()

	s.scheduleNext()
}

// Stop prevents new task dispatch and cancels the pending timer, but does
// not interrupt an in-flight executor call.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

// Resume clears the stopped flag and re-evaluates scheduling.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	s.scheduleNext()
}

// Shutdown stops dispatch and cancels the context passed to any still
// in-flight executor call, allowing well-behaved executors to unwind early.
func (s *Scheduler) Shutdown() {
	s.Stop()
	s.cancel()
}

// ClearQueues empties every lane without touching cooldowns.
func (s *Scheduler) ClearQueues() {
	s.mu.Lock()
	lanes := make([]*queue.TypedQueue, 0, len(s.lanes))
	for _, q := range s.lanes {
		lanes = append(lanes, q)
	}
	s.mu.Unlock()
	for _, q := range lanes {
		q.Clear()
	}
}

// ResetQueues empties every lane and clears cooldowns and execution flags —
// the "force immediate" operator action — then re-evaluates scheduling.
func (s *Scheduler) ResetQueues() {
	s.mu.Lock()
	lanes := make([]*queue.TypedQueue, 0, len(s.lanes))
	for _, q := range s.lanes {
		lanes = append(lanes, q)
	}
	s.mu.Unlock()
	for _, q := range lanes {
		q.Reset()
	}
	s.scheduleNext()
}

// HasPendingTasks reports whether any lane has a queued task.
func (s *Scheduler) HasPendingTasks() bool {
	s.mu.Lock()
	lanes := make([]*queue.TypedQueue, 0, len(s.lanes))
	for _, q := range s.lanes {
		lanes = append(lanes, q)
	}
	s.mu.Unlock()
	for _, q := range lanes {
		if q.HasTask() {
			return true
		}
	}
	return false
}

// IsExecutorBusy reports whether a task is currently in flight.
func (s *Scheduler) IsExecutorBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// LaneStats is a snapshot of one lane's state for introspection.
type LaneStats struct {
	Name        string `json:"name"`
	Depth       int    `json:"depth"`
	IsExecuting bool   `json:"is_executing"`
}

// GetStats returns a snapshot of every registered lane plus global state.
func (s *Scheduler) GetStats() map[string]any {
	s.mu.Lock()
	names := append([]string(nil), s.order...)
	busy := s.busy
	stopped := s.stopped
	lanes := make(map[string]*queue.TypedQueue, len(s.lanes))
	for k, v := range s.lanes {
		lanes[k] = v
	}
	s.mu.Unlock()

	sort.Strings(names)
	laneStats := make([]LaneStats, 0, len(names))
	for _, n := range names {
		q := lanes[n]
		laneStats = append(laneStats, LaneStats{
			Name:        n,
			Depth:       q.Len(),
			IsExecuting: q.IsExecuting(),
		})
	}

	return map[string]any{
		"executor_busy": busy,
		"stopped":       stopped,
		"lanes":         laneStats,
	}
}

// scheduleNext is the heart of the engine: run on every state change
// (enqueue, completion, resume, reset).
func (s *Scheduler) scheduleNext() {
	s.mu.Lock()
	if s.stopped || s.busy {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	now := s.now()
	n := len(s.order)
	if n == 0 {
		s.mu.Unlock()
		return
	}

	for i := 0; i < n; i++ {
		idx := (s.cursor + i) % n
		name := s.order[idx]
		q := s.lanes[name]
		if !q.CanStart(now) {
			continue
		}

		task := q.GetNext()
		if task == nil {
			continue
		}
		q.MarkStarted()
		s.cursor = (idx + 1) % n
		s.busy = true
		s.mu.Unlock()

		s.dispatch(task, name)
		return
	}

	// Nothing ready: compute the earliest feasible wake and arm one timer.
	var earliest time.Time
	var earliestLane string
	found := false
	for _, name := range s.order {
		q := s.lanes[name]
		if !q.HasTask() {
			continue
		}
		t := q.GetNextAvailableTime()
		if !found || t.Before(earliest) {
			earliest = t
			earliestLane = name
			found = true
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}

	wait := earliest.Sub(now)
	if wait < 0 {
		wait = 0
	}
	s.timer = time.AfterFunc(wait, s.scheduleNext)
	s.mu.Unlock()

	if wait > waitNotifyThreshold && s.onWait != nil {
		s.onWait(earliestLane, wait, earliest)
	}
}

// dispatch fires the executor for task on lane name, fire-and-forget from
// scheduleNext's perspective. The scheduler remains idle for the whole
// duration of the executor call — this is the at-most-one-in-flight
// invariant.
func (s *Scheduler) dispatch(task tasks.Task, name string) {
	s.mu.Lock()
	startSignals := s.signals
	s.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("executor panicked", "lane", name, "panic", r)
			}
			// Safety net: if the executor never reached a terminal signal
			// (implementation bug), the lane would otherwise stay busy
			// forever and the scheduler would wedge.
			s.mu.Lock()
			signalled := s.signals != startSignals
			s.mu.Unlock()
			if !signalled {
				s.logger.Error("executor returned without a terminal signal; applying safety-net cooldown", "lane", name)
				s.MarkTaskFailed(name, 0)
			}
		}()
		if err := s.executor(s.ctx, task, name); err != nil {
			s.logger.Debug("executor returned error", "lane", name, "error", err)
		}
	}()
}
