// Package scheduler runs tasks on four independently sized worker pools
// (discovery, clone, process, io). Pool sizes bound concurrency per
// resource profile: network-heavy discovery, disk-and-network clones,
// CPU-bound processing and serialized index writes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/davidlary/openbooks/pkg/monitor"
)

// ErrResourcesExhausted is returned when admission control gives up
// waiting for the host to recover before the context expires.
var ErrResourcesExhausted = errors.New("system resources exhausted")

const admissionPollInterval = 5 * time.Second

// PoolSizes configures the worker count per kind. Zero values get a
// sensible floor of one worker.
type PoolSizes struct {
	Discovery int
	Clone     int
	Process   int
	IO        int
}

type job struct {
	ctx     context.Context
	task    Task
	results chan<- Result
}

type pool struct {
	jobs chan job
	size int
}

// Scheduler owns the pools. Construct with New, call Start before
// submitting and Stop to drain.
type Scheduler struct {
	pools       map[Kind]*pool
	mon         *monitor.Monitor
	taskTimeout time.Duration
	logger      *slog.Logger

	wg sync.WaitGroup

	mu            sync.Mutex
	completed     int
	failed        int
	totalDuration time.Duration
	startedAt     time.Time
}

// New builds a scheduler. taskTimeout bounds each task's wall clock; the
// timeout cancels the task context, which kills any subprocess under it.
func New(sizes PoolSizes, mon *monitor.Monitor, taskTimeout time.Duration, logger *slog.Logger) *Scheduler {
	mk := func(n int) *pool {
		if n < 1 {
			n = 1
		}
		return &pool{jobs: make(chan job, n*2), size: n}
	}
	return &Scheduler{
		pools: map[Kind]*pool{
			KindDiscovery: mk(sizes.Discovery),
			KindClone:     mk(sizes.Clone),
			KindProcess:   mk(sizes.Process),
			KindIO:        mk(sizes.IO),
		},
		mon:         mon,
		taskTimeout: taskTimeout,
		logger:      logger,
	}
}

// Start launches the worker goroutines.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	for _, p := range s.pools {
		for i := 0; i < p.size; i++ {
			s.wg.Add(1)
			go s.worker(p.jobs)
		}
	}
}

// Stop closes the job channels and waits for in-flight tasks to finish.
func (s *Scheduler) Stop() {
	for _, p := range s.pools {
		close(p.jobs)
	}
	s.wg.Wait()
}

func (s *Scheduler) worker(jobs <-chan job) {
	defer s.wg.Done()
	for j := range jobs {
		s.execute(j)
	}
}

func (s *Scheduler) execute(j job) {
	ctx := j.ctx
	if s.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	value, err := j.task.Execute(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.totalDuration += elapsed
	if err != nil {
		s.failed++
	} else {
		s.completed++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("task failed",
			"task", j.task.ID(), "kind", j.task.Kind(), "duration", elapsed, "error", err)
	} else {
		s.logger.Debug("task complete",
			"task", j.task.ID(), "kind", j.task.Kind(), "duration", elapsed)
	}

	j.results <- Result{
		TaskID:   j.task.ID(),
		Kind:     j.task.Kind(),
		Value:    value,
		Err:      err,
		Duration: elapsed,
	}
}

// SubmitBatch runs a set of tasks and blocks until all finish. Tasks are
// ordered by priority before dispatch; results are grouped by kind in
// completion order. Admission control runs once per batch: if the host is
// over the resource thresholds, submission waits for recovery instead of
// piling more work onto a struggling machine.
func (s *Scheduler) SubmitBatch(ctx context.Context, tasks []Task) (map[Kind][]Result, error) {
	if len(tasks) == 0 {
		return map[Kind][]Result{}, nil
	}
	if err := s.waitForResources(ctx); err != nil {
		return nil, err
	}

	ordered := make([]Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	results := make(chan Result, len(ordered))
	submitted := 0
	for _, task := range ordered {
		p, ok := s.pools[task.Kind()]
		if !ok {
			return nil, fmt.Errorf("no pool for task kind %q", task.Kind())
		}
		select {
		case p.jobs <- job{ctx: ctx, task: task, results: results}:
			submitted++
		case <-ctx.Done():
			// Drain what was already submitted before reporting.
			for i := 0; i < submitted; i++ {
				<-results
			}
			return nil, ctx.Err()
		}
	}

	grouped := map[Kind][]Result{}
	for i := 0; i < submitted; i++ {
		res := <-results
		grouped[res.Kind] = append(grouped[res.Kind], res)
	}
	return grouped, nil
}

// waitForResources blocks while the host is unhealthy, polling until it
// recovers or the context expires.
func (s *Scheduler) waitForResources(ctx context.Context) error {
	if s.mon == nil {
		return nil
	}
	for {
		healthy, reason := s.mon.Check()
		if healthy {
			return nil
		}
		s.logger.Warn("delaying batch submission", "reason", reason)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrResourcesExhausted, reason)
		case <-time.After(admissionPollInterval):
		}
	}
}

// Stats summarizes scheduler throughput since Start.
type Stats struct {
	Completed     int
	Failed        int
	TotalDuration time.Duration
	TasksPerSec   float64
}

// Snapshot returns the current counters.
func (s *Scheduler) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Completed:     s.completed,
		Failed:        s.failed,
		TotalDuration: s.totalDuration,
	}
	if elapsed := time.Since(s.startedAt).Seconds(); elapsed > 0 && !s.startedAt.IsZero() {
		st.TasksPerSec = float64(st.Completed+st.Failed) / elapsed
	}
	return st
}
