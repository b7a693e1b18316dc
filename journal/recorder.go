package journal

import (
	"context"
	"sync"
	"time"

	"taskmill/eventbus"
	"taskmill/scheduler"
	logx "taskmill/pkg/logx"
)

// Recorder subscribes to a scheduler's event bus and records one entry per
// attempt outcome: completions, retries, final failures, and cancellations.
// Entries land in a bounded in-memory ring and, when a Store is configured,
// in persistent history as well.
type Recorder struct {
	log   logx.Logger
	store Store // nil means ring-only

	mu   sync.Mutex
	ring []Entry
	size int

	unsub func()
	done  chan struct{}
}

// NewRecorder builds a recorder. store may be nil.
func NewRecorder(store Store, ringSize int, log logx.Logger) *Recorder {
	if ringSize <= 0 {
		ringSize = 200
	}
	return &Recorder{log: log, store: store, size: ringSize}
}

// Start subscribes to the bus and begins recording. Start is not idempotent;
// call it once per Recorder.
func (r *Recorder) Start(bus eventbus.Bus) {
	ch, unsub := bus.Subscribe(64,
		eventbus.TypeTaskCompleted,
		eventbus.TypeTaskFailed,
		eventbus.TypeTaskRetrying,
		eventbus.TypeTaskCanceled,
	)
	r.unsub = unsub
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		for e := range ch {
			r.record(e)
		}
	}()
}

// Stop unsubscribes and waits for the drain goroutine to exit.
func (r *Recorder) Stop() {
	if r.unsub != nil {
		r.unsub()
	}
	if r.done != nil {
		<-r.done
	}
}

// Recent returns up to n ring entries, newest first.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.ring) {
		n = len(r.ring)
	}
	out := make([]Entry, 0, n)
	for i := len(r.ring) - 1; i >= len(r.ring)-n; i-- {
		out = append(out, r.ring[i])
	}
	return out
}

func (r *Recorder) record(e eventbus.Event) {
	ev, ok := e.Data.(scheduler.TaskEvent)
	if !ok {
		return
	}
	entry := Entry{
		TaskID:  ev.ID,
		Name:    ev.Name,
		Outcome: string(ev.Status),
		Attempt: ev.Attempt,
		At:      e.Time,
		Took:    ev.Took,
		Error:   ev.Error,
	}

	r.mu.Lock()
	r.ring = append(r.ring, entry)
	if len(r.ring) > r.size {
		r.ring = r.ring[len(r.ring)-r.size:]
	}
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.store.Append(ctx, entry); err != nil {
		r.log.Warn("journal append failed", logx.String("task", entry.Name), logx.Err(err))
	}
}
