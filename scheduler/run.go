package scheduler

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"taskmill/eventbus"
	logx "taskmill/pkg/logx"
)

// runAttempt performs one execution attempt. It is called synchronously
// from Submit (zero delay), from timer callbacks, from cron fires, and from
// the dependency waiter. A task whose status is no longer scheduled or
// retrying (canceled, overridden, or an overlapping cron fire) is skipped.
func (s *Scheduler) runAttempt(t *task) {
	s.mu.Lock()
	if t.status != StatusScheduled && t.status != StatusRetrying {
		s.mu.Unlock()
		return
	}
	t.status = StatusExecuting
	t.timer = nil
	id, name := t.id, t.name
	attempt := t.retryCount + 1
	work := t.run
	s.mu.Unlock()

	started := time.Now()
	s.hooks.fireStart(s.log, id, name)
	s.publish(eventbus.TypeTaskStarted, TaskEvent{ID: id, Name: name, Status: StatusExecuting, Attempt: attempt, Started: started})
	s.log.Debug("task.started", logx.String("id", id), logx.String("task", name), logx.Int("attempt", attempt))

	err := s.invoke(work, id, name)
	if err == nil {
		s.finishSuccess(t, started, attempt)
		return
	}
	s.finishFailure(t, started, attempt, err)
}

// invoke guards against work panics so one bad task cannot take down the
// process or corrupt the registry.
func (s *Scheduler) invoke(work Func, id, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("task.panic",
				logx.String("id", id), logx.String("task", name),
				logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	return work()
}

func (s *Scheduler) finishSuccess(t *task, started time.Time, attempt int) {
	took := time.Since(started)

	s.mu.Lock()
	if t.status != StatusExecuting {
		// Canceled (or overridden) while the callback was in flight;
		// cancellation wins, the transition is suppressed.
		s.mu.Unlock()
		return
	}
	t.lastErr = nil
	id, name := t.id, t.name
	if t.recurring {
		// Success resets the per-cycle retry budget and re-arms the next
		// cycle; recurring tasks never reach terminal StatusCompleted.
		t.retryCount = 0
		t.status = StatusScheduled
		if t.cronID == 0 {
			t.timer = time.AfterFunc(t.delay, func() { s.runAttempt(t) })
		}
		s.mu.Unlock()
	} else {
		t.status = StatusCompleted
		s.wakeWaitersLocked()
		s.mu.Unlock()
	}

	s.hooks.fireComplete(s.log, id, name)
	s.publish(eventbus.TypeTaskCompleted, TaskEvent{ID: id, Name: name, Status: StatusCompleted, Attempt: attempt, Started: started, Took: took})
	s.log.Debug("task.completed", logx.String("id", id), logx.String("task", name), logx.Int("attempt", attempt), logx.Duration("took", took))
}

// finishFailure routes a failed attempt through the retry policy: re-arm
// after the task's own delay/interval while budget remains, otherwise fail
// terminally. No backoff; the spacing is the task's configured value.
func (s *Scheduler) finishFailure(t *task, started time.Time, attempt int, err error) {
	took := time.Since(started)

	var nr noRetryError
	permanent := errors.As(err, &nr)
	if permanent {
		err = nr.err
	}

	s.mu.Lock()
	if t.status != StatusExecuting {
		s.mu.Unlock()
		return
	}
	t.lastErr = err
	id, name := t.id, t.name

	if !permanent && t.retryCount < t.maxRetries {
		t.retryCount++
		n, limit := t.retryCount, t.maxRetries
		t.status = StatusRetrying
		retryIn := t.delay
		if t.cronID != 0 {
			retryIn = 0
		}
		s.mu.Unlock()

		// The hook fires strictly between the failed attempt and its
		// re-execution, so the timer is armed only afterwards.
		s.hooks.fireRetry(s.log, id, name, n, limit)
		s.publish(eventbus.TypeTaskRetrying, TaskEvent{ID: id, Name: name, Status: StatusRetrying, Attempt: attempt, Started: started, Took: took, Error: err.Error()})
		s.log.Debug("task retry scheduled",
			logx.String("id", id), logx.String("task", name),
			logx.Int("attempt", n), logx.Int("limit", limit),
			logx.Duration("in", retryIn), logx.Err(err))

		s.mu.Lock()
		// Canceled (or overridden) while the hook ran; do not re-arm.
		if t.status == StatusRetrying {
			t.timer = time.AfterFunc(retryIn, func() { s.runAttempt(t) })
		}
		s.mu.Unlock()
		return
	}

	t.status = StatusFailed
	// A recurring schedule stops once a cycle exhausts its retries;
	// failure does not silently continue the loop.
	s.releaseHandleLocked(t)
	s.mu.Unlock()

	s.hooks.fireFail(s.log, id, name, err)
	s.publish(eventbus.TypeTaskFailed, TaskEvent{ID: id, Name: name, Status: StatusFailed, Attempt: attempt, Started: started, Took: took, Error: err.Error()})
	s.log.Warn("task.failed", logx.String("id", id), logx.String("task", name), logx.Int("attempts", attempt), logx.Err(err))
}

// waitForDeps polls the registry until the task's prerequisites are all
// completed, then schedules (or, for zero delay, directly runs) the task.
// A task whose dependencies never complete waits forever; callers needing
// a deadline cancel it externally. The waiter also wakes on the scheduler's
// completion broadcast, so satisfaction latency is normally far below one
// poll interval.
func (s *Scheduler) waitForDeps(t *task) {
	tick := time.NewTicker(s.cfg.PollInterval)
	defer tick.Stop()

	for {
		s.mu.Lock()
		if t.status != StatusWaiting {
			s.mu.Unlock()
			return
		}
		wake := s.wake
		if s.depsMetLocked(t.deps) {
			t.status = StatusScheduled
			if t.delay > 0 {
				t.timer = time.AfterFunc(t.delay, func() { s.runAttempt(t) })
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			// Zero-delay dependents execute directly from the
			// satisfaction check, not re-entrantly deferred.
			s.runAttempt(t)
			return
		}
		s.mu.Unlock()

		select {
		case <-tick.C:
		case <-wake:
		case <-s.stopCh:
			return
		}
	}
}

// depsMetLocked is the dependency resolver: a list is satisfied iff every
// id resolves to a completed record. Unknown ids are never satisfied (fails
// closed to "not ready"). No caching; every call reads live registry state.
func (s *Scheduler) depsMetLocked(deps []string) bool {
	for _, id := range deps {
		dep, ok := s.tasks[id]
		if !ok || dep.status != StatusCompleted {
			return false
		}
	}
	return true
}

func (s *Scheduler) wakeWaitersLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}
