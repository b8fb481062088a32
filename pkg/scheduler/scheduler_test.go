package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingTask struct {
	Base
	current *atomic.Int32
	peak    *atomic.Int32
	fail    bool
}

func (t *countingTask) Execute(ctx context.Context) (any, error) {
	n := t.current.Add(1)
	for {
		p := t.peak.Load()
		if n <= p || t.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	t.current.Add(-1)
	if t.fail {
		return nil, errors.New("boom")
	}
	return t.TaskID, nil
}

func newTestScheduler(t *testing.T, sizes PoolSizes, timeout time.Duration) *Scheduler {
	t.Helper()
	s := New(sizes, nil, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestPoolBoundsConcurrency(t *testing.T) {
	s := newTestScheduler(t, PoolSizes{Process: 3, Discovery: 1, Clone: 1, IO: 1}, 0)

	var current, peak atomic.Int32
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = &countingTask{
			Base:    NewBase(fmt.Sprintf("task-%d", i), KindProcess, 2),
			current: &current,
			peak:    &peak,
		}
	}

	grouped, err := s.SubmitBatch(context.Background(), tasks)
	if err != nil {
		t.Fatalf("SubmitBatch() error: %v", err)
	}
	if got := len(grouped[KindProcess]); got != 10 {
		t.Errorf("got %d results, want 10", got)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= pool size 3", p)
	}
}

func TestBatchCountsFailures(t *testing.T) {
	s := newTestScheduler(t, PoolSizes{Process: 2, Discovery: 1, Clone: 1, IO: 1}, 0)

	var current, peak atomic.Int32
	tasks := []Task{
		&countingTask{Base: NewBase("ok", KindProcess, 1), current: &current, peak: &peak},
		&countingTask{Base: NewBase("bad", KindProcess, 1), current: &current, peak: &peak, fail: true},
	}

	grouped, err := s.SubmitBatch(context.Background(), tasks)
	if err != nil {
		t.Fatalf("SubmitBatch() error: %v", err)
	}

	failures := 0
	for _, res := range grouped[KindProcess] {
		if res.Err != nil {
			failures++
			if res.TaskID != "bad" {
				t.Errorf("failed task = %q, want bad", res.TaskID)
			}
		}
	}
	if failures != 1 {
		t.Errorf("got %d failures, want 1", failures)
	}

	st := s.Snapshot()
	if st.Completed != 1 || st.Failed != 1 {
		t.Errorf("stats = %+v, want 1 completed, 1 failed", st)
	}
}

type blockingTask struct {
	Base
}

func (t *blockingTask) Execute(ctx context.Context) (any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTaskTimeoutCancelsContext(t *testing.T) {
	s := newTestScheduler(t, PoolSizes{Process: 1, Discovery: 1, Clone: 1, IO: 1}, 20*time.Millisecond)

	tasks := []Task{&blockingTask{Base: NewBase("stuck", KindProcess, 1)}}
	grouped, err := s.SubmitBatch(context.Background(), tasks)
	if err != nil {
		t.Fatalf("SubmitBatch() error: %v", err)
	}

	results := grouped[KindProcess]
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !errors.Is(results[0].Err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", results[0].Err)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	s := newTestScheduler(t, PoolSizes{Process: 1, Discovery: 1, Clone: 1, IO: 1}, 0)

	tasks := []Task{&blockingTask{Base: NewBase("odd", Kind("mystery"), 1)}}
	if _, err := s.SubmitBatch(context.Background(), tasks); err == nil {
		t.Error("SubmitBatch() accepted a task with no pool")
	}
}

func TestRetryBookkeeping(t *testing.T) {
	b := NewBase("x", KindClone, 1)
	if !b.Retryable() {
		t.Error("fresh task not retryable")
	}
	b.RetryCount = b.MaxRetries
	if b.Retryable() {
		t.Error("exhausted task still retryable")
	}
}
