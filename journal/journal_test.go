package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskmill/eventbus"
	"taskmill/scheduler"
	logx "taskmill/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " None "} {
		store, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if store != nil {
			t.Fatalf("Open(%q) should return a nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should be rejected")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		e := Entry{
			TaskID:  "1-" + string(rune('0'+i)),
			Name:    "job",
			Outcome: "completed",
			Attempt: 1,
			At:      base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(got))
	}
	// Newest first.
	if !got[0].At.After(got[1].At) || !got[1].At.After(got[2].At) {
		t.Fatalf("entries not newest-first: %v", got)
	}
}

func TestFileStoreSkipsMalformedLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := store.Append(ctx, Entry{TaskID: "1-0", Name: "ok", Outcome: "completed", At: time.Now()}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	// Simulate a torn write.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{\"task_id\": \"tru"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "ok" {
		t.Fatalf("Recent = %v, want the single intact entry", got)
	}
}

func TestRecorderRingFromBus(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	rec := NewRecorder(nil, 3, logx.Nop())
	rec.Start(bus)
	t.Cleanup(rec.Stop)

	outcomes := []string{
		eventbus.TypeTaskCompleted,
		eventbus.TypeTaskRetrying,
		eventbus.TypeTaskFailed,
		eventbus.TypeTaskCanceled,
	}
	for i, typ := range outcomes {
		bus.Publish(eventbus.Event{Type: typ, Data: scheduler.TaskEvent{
			ID:      "7-" + string(rune('0'+i)),
			Name:    "job",
			Status:  scheduler.Status(typ[len("task."):]),
			Attempt: i + 1,
		}})
	}
	// Started events are not part of run history.
	bus.Publish(eventbus.Event{Type: eventbus.TypeTaskStarted, Data: scheduler.TaskEvent{ID: "7-9"}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cur := rec.Recent(1); len(cur) == 1 && cur[0].Outcome == "canceled" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := rec.Recent(0)
	if len(got) != 3 {
		t.Fatalf("ring holds %d entries, want the configured cap of 3", len(got))
	}
	// Newest first; the oldest (completed) entry was evicted.
	if got[0].Outcome != "canceled" || got[2].Outcome != "retrying" {
		t.Fatalf("ring contents = %v", got)
	}
	for _, e := range got {
		if e.At.IsZero() {
			t.Fatal("bus publish time should be stamped onto the entry")
		}
	}
}

func TestRecorderPersistsToStore(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus := eventbus.New()
	rec := NewRecorder(store, 10, logx.Nop())
	rec.Start(bus)

	bus.Publish(eventbus.Event{Type: eventbus.TypeTaskFailed, Data: scheduler.TaskEvent{
		ID: "3-0", Name: "flaky", Status: scheduler.StatusFailed, Attempt: 2, Error: "boom",
	}})

	deadline := time.Now().Add(2 * time.Second)
	var got []Entry
	for time.Now().Before(deadline) {
		got, err = store.Recent(context.Background(), 10)
		if err != nil {
			t.Fatalf("Recent error: %v", err)
		}
		if len(got) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec.Stop()

	if len(got) != 1 {
		t.Fatalf("store holds %d entries, want 1", len(got))
	}
	if got[0].TaskID != "3-0" || got[0].Outcome != "failed" || got[0].Error != "boom" {
		t.Fatalf("persisted entry = %+v", got[0])
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("file driver without a path should be rejected")
	}
}
