package scheduler

import (
	"time"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusWaiting   Status = "waiting"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// Terminal reports whether a task in this state is finished for good.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusFailed:
		return true
	}
	return false
}

// Func is the unit of work. It receives no cancellation token:
// Cancel only prevents future firings, it never interrupts a running call.
type Func func() error

// Options carries per-task submission settings.
type Options struct {
	// Name is a diagnostic label, not required to be unique.
	// Empty defaults to the assigned id.
	Name string

	// MaxRetries is the number of re-attempts permitted after the first
	// failure. Negative values are treated as 0. For recurring tasks the
	// budget applies per cycle.
	MaxRetries int

	// DependsOn lists task ids that must reach StatusCompleted before
	// this task may execute. One-shot tasks only.
	DependsOn []string

	// Meta is a single opaque caller-supplied value carried on the record.
	Meta any
}

// Config controls a Scheduler.
type Config struct {
	// PollInterval is the dependency re-check cadence. 0 means 100ms.
	// Completion of any task additionally wakes all waiters immediately,
	// so this is the worst-case satisfaction latency, not the typical one.
	PollInterval time.Duration

	// Timezone is the IANA zone used by cron schedules (e.g. "Asia/Jakarta").
	// Empty means the process-local zone.
	Timezone string
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	return c
}

// Record is a copy of a task's registry entry, safe to hold after return.
type Record struct {
	ID          string
	Name        string
	Status      Status
	Recurring   bool
	CronSpec    string
	Delay       time.Duration // delay (one-shot) or interval (recurring)
	DependsOn   []string
	RetryCount  int
	MaxRetries  int
	Meta        any
	SubmittedAt time.Time
	LastError   string
}

// TaskEvent is emitted on the event bus for task lifecycle events.
type TaskEvent struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Attempt int           `json:"attempt,omitempty"`
	Started time.Time     `json:"started,omitzero"`
	Took    time.Duration `json:"took,omitempty"`
	Error   string        `json:"error,omitempty"`
}
