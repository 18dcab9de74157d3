// Package queue implements the passive, per-lane FIFO used by the scheduler.
// A TypedQueue holds no goroutines, timers, or I/O of its own — it is pure
// bookkeeping that the scheduler consults and mutates on every state change.
package queue

import (
	"sync"
	"time"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

// entry pairs a queued task with the earliest wall-clock instant it may start.
type entry struct {
	task            tasks.Task
	earliestStartAt time.Time
}

// TypedQueue is a single lane: an ordered sequence of tasks, a cooldown
// floor, and an executing flag. It has no background work of its own.
type TypedQueue struct {
	mu sync.Mutex

	name          string
	items         []entry
	isExecuting   bool
	nextAvailable time.Time
	defaultCool   time.Duration

	now func() time.Time
}

// New creates a TypedQueue with the given default cooldown. An optional
// clock function may be supplied for deterministic tests; it defaults to
// time.Now.
func New(name string, defaultCooldown time.Duration, now func() time.Time) *TypedQueue {
	if now == nil {
		now = time.Now
	}
	return &TypedQueue{
		name:        name,
		defaultCool: defaultCooldown,
		now:         now,
	}
}

// Name returns the lane name this queue serves.
func (q *TypedQueue) Name() string { return q.name }

// Add appends a task, available after the given delay (default 0 — now).
func (q *TypedQueue) Add(task tasks.Task, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, entry{task: task, earliestStartAt: q.now().Add(delay)})
}

// AddFirst prepends a task — the priority path used for retries — available
// after the given delay.
func (q *TypedQueue) AddFirst(task tasks.Task, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := entry{task: task, earliestStartAt: q.now().Add(delay)}
	q.items = append([]entry{e}, q.items...)
}

// PeekNext returns the FIFO head without removing it, or nil if empty.
func (q *TypedQueue) PeekNext() tasks.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0].task
}

// GetNext pops and returns the FIFO head, or nil if empty.
func (q *TypedQueue) GetNext() tasks.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0].task
	q.items = q.items[1:]
	return t
}

// CanStart reports whether this lane may dispatch right now: not already
// executing, past its cooldown floor, has a head task, and that head task's
// own earliest-start delay has elapsed.
func (q *TypedQueue) CanStart(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isExecuting {
		return false
	}
	if now.Before(q.nextAvailable) {
		return false
	}
	if len(q.items) == 0 {
		return false
	}
	return !now.Before(q.items[0].earliestStartAt)
}

// HasTask reports whether the lane has any queued task, ignoring cooldown
// and execution state.
func (q *TypedQueue) HasTask() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) > 0
}

// Len returns the number of queued tasks.
func (q *TypedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsExecuting reports whether a task from this lane is currently in flight.
func (q *TypedQueue) IsExecuting() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isExecuting
}

// MarkStarted marks the lane as having a task in flight. Invariant: at most
// one MarkStarted without an intervening MarkCompleted/MarkFailed.
func (q *TypedQueue) MarkStarted() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.isExecuting = true
}

// MarkCompleted clears the executing flag and starts the cooldown. A
// cooldownMs of 0 uses the lane's default cooldown.
func (q *TypedQueue) MarkCompleted(cooldown time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finish(cooldown)
}

// MarkFailed behaves identically to MarkCompleted — the scheduler does not
// distinguish success from failure at the lane level; that judgment belongs
// to the Queue Manager, which chooses the cooldown it passes in.
func (q *TypedQueue) MarkFailed(cooldown time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finish(cooldown)
}

func (q *TypedQueue) finish(cooldown time.Duration) {
	if cooldown <= 0 {
		cooldown = q.defaultCool
	}
	q.isExecuting = false
	q.nextAvailable = q.now().Add(cooldown)
}

// Clear empties the queue without touching cooldown or execution state.
func (q *TypedQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Reset empties the queue and clears the cooldown and execution flag — used
// when the operator forces an immediate check.
func (q *TypedQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.isExecuting = false
	q.nextAvailable = time.Time{}
}

// GetNextAvailableTime returns the instant this lane could next dispatch,
// ignoring the executing flag: the later of the cooldown floor and the head
// task's own earliest-start delay. With an empty queue it returns the
// cooldown floor alone.
func (q *TypedQueue) GetNextAvailableTime() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return q.nextAvailable
	}
	head := q.items[0].earliestStartAt
	if head.After(q.nextAvailable) {
		return head
	}
	return q.nextAvailable
}
