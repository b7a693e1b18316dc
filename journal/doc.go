// Package journal records task run outcomes for later inspection.
//
// It currently supports:
//   - A bounded in-memory ring (always on, via Recorder)
//   - Optional persistence: append-only JSONL file or SQLite
//
// The journal is history, not live scheduler state: nothing is replayed
// into the scheduler on restart.
package journal
