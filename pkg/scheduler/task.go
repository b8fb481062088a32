package scheduler

import (
	"context"
	"time"
)

// Kind routes a task to one of the four worker pools.
type Kind string

const (
	KindDiscovery Kind = "discovery"
	KindClone     Kind = "clone"
	KindProcess   Kind = "process"
	KindIO        Kind = "io"
)

// Task is a unit of work. Concrete task types live next to the code that
// owns their behavior; the scheduler only sees this interface, so adding
// a task type never touches dispatch.
type Task interface {
	ID() string
	Kind() Kind
	// Priority orders tasks within a batch; lower runs first.
	Priority() int
	Execute(ctx context.Context) (any, error)
}

// Result is the outcome of one executed task.
type Result struct {
	TaskID   string
	Kind     Kind
	Value    any
	Err      error
	Duration time.Duration
}

// Base carries the bookkeeping fields shared by every concrete task.
// Embed it and implement Execute. The scheduler never requeues failed
// tasks; RetryCount is advanced by whoever resubmits.
type Base struct {
	TaskID       string
	TaskKind     Kind
	TaskPriority int
	RetryCount   int
	MaxRetries   int
}

// NewBase builds task bookkeeping with the default retry budget.
func NewBase(id string, kind Kind, priority int) Base {
	return Base{TaskID: id, TaskKind: kind, TaskPriority: priority, MaxRetries: 3}
}

func (b Base) ID() string    { return b.TaskID }
func (b Base) Kind() Kind    { return b.TaskKind }
func (b Base) Priority() int { return b.TaskPriority }

// Retryable reports whether the task has retry budget left.
func (b Base) Retryable() bool { return b.RetryCount < b.MaxRetries }
