package journal

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures run-history persistence.
//
// Driver values:
//   - "file": append-only JSONL file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", persistence is disabled (the in-memory
// ring in Recorder still works).
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	// MaxRows bounds the sqlite runs table; oldest rows are pruned
	// opportunistically. 0 keeps everything.
	MaxRows int

	// RingSize bounds the Recorder's in-memory history. 0 means 200.
	RingSize int
}

// Entry is one recorded run outcome. Keep it compact and schema-stable.
type Entry struct {
	TaskID  string        `json:"task_id"`
	Name    string        `json:"name"`
	Outcome string        `json:"outcome"` // completed | failed | retrying | canceled
	Attempt int           `json:"attempt,omitempty"`
	At      time.Time     `json:"at"`
	Took    time.Duration `json:"took,omitempty"`
	Error   string        `json:"error,omitempty"`
}
