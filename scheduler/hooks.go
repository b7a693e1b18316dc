package scheduler

import (
	"sync"

	logx "taskmill/pkg/logx"
)

// hookSet holds the single assignable subscriber per lifecycle event.
// Assigning a new hook replaces the previous one; there is no fan-out here
// (the event bus covers multi-subscriber needs). Hooks run synchronously on
// the goroutine performing the transition; a panicking hook is recovered so
// it can never corrupt registry state or block the transition itself.
type hookSet struct {
	mu         sync.Mutex
	onStart    func(id, name string)
	onComplete func(id, name string)
	onFail     func(id, name string, err error)
	onRetry    func(id, name string, attempt, limit int)
}

// OnStart sets the hook fired before each execution attempt, retries included.
func (s *Scheduler) OnStart(fn func(id, name string)) {
	s.hooks.mu.Lock()
	s.hooks.onStart = fn
	s.hooks.mu.Unlock()
}

// OnComplete sets the hook fired when an attempt succeeds.
func (s *Scheduler) OnComplete(fn func(id, name string)) {
	s.hooks.mu.Lock()
	s.hooks.onComplete = fn
	s.hooks.mu.Unlock()
}

// OnFail sets the hook fired once, on final failure, with the last error.
func (s *Scheduler) OnFail(fn func(id, name string, err error)) {
	s.hooks.mu.Lock()
	s.hooks.onFail = fn
	s.hooks.mu.Unlock()
}

// OnRetry sets the hook fired between a failed attempt and its re-execution.
func (s *Scheduler) OnRetry(fn func(id, name string, attempt, limit int)) {
	s.hooks.mu.Lock()
	s.hooks.onRetry = fn
	s.hooks.mu.Unlock()
}

func (h *hookSet) fireStart(log logx.Logger, id, name string) {
	h.mu.Lock()
	fn := h.onStart
	h.mu.Unlock()
	if fn == nil {
		return
	}
	defer recoverHook(log, "start", id)
	fn(id, name)
}

func (h *hookSet) fireComplete(log logx.Logger, id, name string) {
	h.mu.Lock()
	fn := h.onComplete
	h.mu.Unlock()
	if fn == nil {
		return
	}
	defer recoverHook(log, "complete", id)
	fn(id, name)
}

func (h *hookSet) fireFail(log logx.Logger, id, name string, err error) {
	h.mu.Lock()
	fn := h.onFail
	h.mu.Unlock()
	if fn == nil {
		return
	}
	defer recoverHook(log, "fail", id)
	fn(id, name, err)
}

func (h *hookSet) fireRetry(log logx.Logger, id, name string, attempt, limit int) {
	h.mu.Lock()
	fn := h.onRetry
	h.mu.Unlock()
	if fn == nil {
		return
	}
	defer recoverHook(log, "retry", id)
	fn(id, name, attempt, limit)
}

func recoverHook(log logx.Logger, hook, id string) {
	if r := recover(); r != nil {
		log.Warn("hook panicked", logx.String("hook", hook), logx.String("id", id), logx.Any("panic", r))
	}
}
