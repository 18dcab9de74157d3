package queue

import (
	"testing"
	"time"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

type fakeTask struct{ lane string }

func (f fakeTask) Lane() string { return f.lane }

func TestFIFOOrder(t *testing.T) {
	q := New("test", time.Minute, nil)
	q.Add(fakeTask{"first"}, 0)
	q.Add(fakeTask{"second"}, 0)

	first := q.GetNext()
	second := q.GetNext()
	if first == nil || second == nil {
		t.Fatal("expected two tasks")
	}
	if first.Lane() != "first" || second.Lane() != "second" {
		t.Errorf("got %q then %q, want first then second", first.Lane(), second.Lane())
	}
}

func TestCanStartRequiresTaskAndCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	q := New("test", time.Minute, clock)

	if q.CanStart(now) {
		t.Error("empty queue should not be able to start")
	}

	q.Add(fakeTask{"test"}, 0)
	if !q.CanStart(now) {
		t.Error("queue with a ready task and no cooldown should be able to start")
	}

	q.MarkStarted()
	if q.CanStart(now) {
		t.Error("an already-executing queue should not be able to start a second task")
	}

	q.MarkCompleted(time.Minute)
	if q.CanStart(now) {
		t.Error("queue still within its cooldown window should not be able to start")
	}

	now = now.Add(2 * time.Minute)
	q.Add(fakeTask{"test"}, 0)
	if !q.CanStart(now) {
		t.Error("queue past its cooldown window should be able to start")
	}
}

func TestEntryDelayGatesCanStart(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	q := New("test", 0, clock)

	q.Add(fakeTask{"test"}, time.Minute)
	if q.CanStart(now) {
		t.Error("a task whose delay has not elapsed should not be startable")
	}

	now = now.Add(time.Minute)
	if !q.CanStart(now) {
		t.Error("a task whose delay has elapsed should be startable")
	}
}

func TestAddFirstIsPriority(t *testing.T) {
	q := New("test", 0, nil)
	low := fakeTask{"low"}
	high := fakeTask{"high"}
	q.Add(low, 0)
	q.AddFirst(high, 0)

	got := q.GetNext()
	if got.Lane() != "high" {
		t.Errorf("AddFirst task should be served before the earlier Add task, got lane %q", got.Lane())
	}
}

func TestMarkFailedAppliesDefaultCooldownWhenZero(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	q := New("test", 5*time.Minute, clock)

	q.Add(fakeTask{"test"}, 0)
	q.MarkStarted()
	q.MarkFailed(0)

	if q.GetNextAvailableTime() != now.Add(5*time.Minute) {
		t.Errorf("MarkFailed(0) should fall back to the default cooldown of 5m, got available at %v", q.GetNextAvailableTime())
	}
}

func TestResetClearsEverything(t *testing.T) {
	q := New("test", time.Minute, nil)
	q.Add(fakeTask{"test"}, 0)
	q.MarkStarted()
	q.Reset()

	if q.HasTask() {
		t.Error("Reset should empty the queue")
	}
	if q.IsExecuting() {
		t.Error("Reset should clear the executing flag")
	}
	if !q.GetNextAvailableTime().IsZero() {
		t.Error("Reset should clear the cooldown floor")
	}
}

func TestClearKeepsCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	q := New("test", time.Minute, clock)
	q.Add(fakeTask{"test"}, 0)
	q.MarkStarted()
	q.MarkCompleted(time.Minute)

	q.Clear()
	if q.HasTask() {
		t.Error("Clear should empty the queue")
	}
	if q.GetNextAvailableTime() != now.Add(time.Minute) {
		t.Error("Clear should not touch the cooldown floor")
	}
}

var _ tasks.Task = fakeTask{}
