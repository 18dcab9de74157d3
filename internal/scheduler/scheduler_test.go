package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

type fakeTask struct{ lane string }

func (f fakeTask) Lane() string { return f.lane }

// blockingExecutor lets the test control exactly when each dispatched task
// finishes, so round-robin and at-most-one-in-flight can be asserted
// deterministically instead of via sleeps.
type blockingExecutor struct {
	mu       sync.Mutex
	order    []string
	release  chan struct{}
	inFlight int32
	maxSeen  int32
}

func (b *blockingExecutor) run(_ context.Context, _ tasks.Task, lane string) error {
	n := atomic.AddInt32(&b.inFlight, 1)
	for {
		old := atomic.LoadInt32(&b.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&b.maxSeen, old, n) {
			break
		}
	}
	b.mu.Lock()
	b.order = append(b.order, lane)
	b.mu.Unlock()
	<-b.release
	atomic.AddInt32(&b.inFlight, -1)
	return nil
}

func TestAtMostOneInFlight(t *testing.T) {
	exec := &blockingExecutor{release: make(chan struct{})}
	close(exec.release) // never actually blocks; we only care about maxSeen under load

	s := New(exec.run, nil, nil)
	if err := s.RegisterQueue("a", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterQueue("b", 0); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		_ = s.AddTask("a", fakeTask{"a"}, 0)
		_ = s.AddTask("b", fakeTask{"b"}, 0)
	}

	deadline := time.After(2 * time.Second)
	for s.HasPendingTasks() || s.IsExecutorBusy() {
		select {
		case <-deadline:
			t.Fatal("tasks never drained")
		case <-time.After(time.Millisecond):
		}
	}

	if atomic.LoadInt32(&exec.maxSeen) > 1 {
		t.Errorf("observed %d tasks in flight simultaneously, want at most 1", exec.maxSeen)
	}
}

func TestRoundRobinFairness(t *testing.T) {
	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 100)

	exec := func(_ context.Context, _ tasks.Task, lane string) error {
		mu.Lock()
		order = append(order, lane)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	var sched *Scheduler
	wrapped := func(ctx context.Context, task tasks.Task, lane string) error {
		err := exec(ctx, task, lane)
		sched.MarkTaskComplete(lane, 0)
		return err
	}
	sched = New(wrapped, nil, nil)

	for _, lane := range []string{"a", "b", "c"} {
		if err := sched.RegisterQueue(lane, 0); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		_ = sched.AddTask("a", fakeTask{"a"}, 0)
		_ = sched.AddTask("b", fakeTask{"b"}, 0)
		_ = sched.AddTask("c", fakeTask{"c"}, 0)
	}

	for i := 0; i < 6; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatch")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 6 {
		t.Fatalf("got %d dispatches, want 6", len(order))
	}
	// Round robin over three equally-ready lanes should visit each lane
	// once before repeating any.
	seenFirstRound := map[string]bool{}
	for _, lane := range order[:3] {
		if seenFirstRound[lane] {
			t.Errorf("lane %q dispatched twice before the others got a turn: %v", lane, order)
		}
		seenFirstRound[lane] = true
	}
}

func TestMarkTaskFailedReopensLaneAfterCooldown(t *testing.T) {
	var sched *Scheduler
	attempts := make(chan time.Time, 4)
	wrapped := func(_ context.Context, _ tasks.Task, lane string) error {
		attempts <- time.Now()
		sched.MarkTaskFailed(lane, 20*time.Millisecond)
		return nil
	}
	sched = New(wrapped, nil, nil)
	if err := sched.RegisterQueue("a", 0); err != nil {
		t.Fatal(err)
	}

	_ = sched.AddTask("a", fakeTask{"a"}, 0)
	_ = sched.AddTask("a", fakeTask{"a"}, 0)

	var times []time.Time
	for i := 0; i < 2; i++ {
		select {
		case ts := <-attempts:
			times = append(times, ts)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for retry dispatch")
		}
	}

	if gap := times[1].Sub(times[0]); gap < 15*time.Millisecond {
		t.Errorf("second attempt fired only %v after the first, want at least the cooldown", gap)
	}
}

func TestSafetyNetOnMisbehavingExecutor(t *testing.T) {
	sched := New(func(_ context.Context, _ tasks.Task, _ string) error {
		// Deliberately never calls MarkTaskComplete/MarkTaskFailed.
		return nil
	}, nil, nil)
	if err := sched.RegisterQueue("a", 0); err != nil {
		t.Fatal(err)
	}
	_ = sched.AddTask("a", fakeTask{"a"}, 0)

	deadline := time.After(2 * time.Second)
	for sched.IsExecutorBusy() {
		select {
		case <-deadline:
			t.Fatal("scheduler stayed wedged after a misbehaving executor returned")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestAddTaskUnknownLane(t *testing.T) {
	sched := New(func(context.Context, tasks.Task, string) error { return nil }, nil, nil)
	if err := sched.AddTask("nonexistent", fakeTask{"nonexistent"}, 0); err == nil {
		t.Error("expected an error enqueueing to an unregistered lane")
	}
}

func TestRegisterQueueRejectsDuplicate(t *testing.T) {
	sched := New(func(context.Context, tasks.Task, string) error { return nil }, nil, nil)
	if err := sched.RegisterQueue("a", 0); err != nil {
		t.Fatal(err)
	}
	if err := sched.RegisterQueue("a", 0); err == nil {
		t.Error("expected an error re-registering an existing lane")
	}
}

func TestStopPreventsDispatch(t *testing.T) {
	var dispatched int32
	sched := New(func(context.Context, tasks.Task, string) error {
		atomic.AddInt32(&dispatched, 1)
		return nil
	}, nil, nil)
	if err := sched.RegisterQueue("a", 0); err != nil {
		t.Fatal(err)
	}
	sched.Stop()
	_ = sched.AddTask("a", fakeTask{"a"}, 0)

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&dispatched) != 0 {
		t.Error("a stopped scheduler should not dispatch")
	}

	sched.Resume()
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&dispatched) == 0 {
		select {
		case <-deadline:
			t.Fatal("resumed scheduler never dispatched the queued task")
		case <-time.After(time.Millisecond):
		}
	}
}
