package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskmill/eventbus"
	"taskmill/internal/ident"
	logx "taskmill/pkg/logx"
)

// Scheduler owns a task registry and the timers that drive it.
//
// All registry mutations happen under mu; user work and hooks always run
// with the lock released. Timer callbacks fire on their own goroutines, so
// unlike a cooperative single-threaded runtime, the mutex is load-bearing.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	ids   *ident.Generator
	tasks map[string]*task

	// wake is closed and replaced whenever any task reaches a terminal
	// status, so dependency waiters recheck immediately instead of
	// sleeping out a full poll interval.
	wake   chan struct{}
	stopCh chan struct{}
	closed bool

	parser cron.Parser
	cron   *cron.Cron
	loc    *time.Location

	hooks hookSet
}

// task is the registry entry. Guarded by Scheduler.mu.
type task struct {
	id   string
	name string

	status    Status
	recurring bool
	cronSpec  string
	delay     time.Duration // delay (one-shot) or interval (recurring); also retry spacing
	deps      []string

	retryCount int
	maxRetries int

	meta        any
	run         Func
	submittedAt time.Time
	lastErr     error

	// handle: at most one of timer / cronID is live at a time.
	timer  *time.Timer
	cronID cron.EntryID
}

// New constructs a scheduler. log may be the zero Logger and bus may be nil;
// both degrade to no-ops.
func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Scheduler {
	cfg = cfg.withDefaults()
	s := &Scheduler{
		cfg:    cfg,
		log:    log,
		bus:    bus,
		ids:    ident.New(),
		tasks:  make(map[string]*task),
		wake:   make(chan struct{}),
		stopCh: make(chan struct{}),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	s.loc = s.loadLocation(cfg.Timezone)
	return s
}

func (s *Scheduler) loadLocation(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// Submit registers a one-shot task and returns its id.
//
// Submit never blocks on dependencies or delays. The one synchronous case:
// delay == 0 with satisfied (or no) dependencies runs work inside this call,
// so callers must not assume asynchronous semantics for zero-delay,
// dependency-free tasks. The error return covers registration problems only;
// execution failures surface through status and the OnFail hook.
func (s *Scheduler) Submit(work Func, delay time.Duration, opt Options) (string, error) {
	if work == nil {
		return "", ErrNilWork
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	t := s.registerLocked(work, opt)
	t.delay = delay
	t.deps = append([]string(nil), opt.DependsOn...)

	if len(t.deps) > 0 && !s.depsMetLocked(t.deps) {
		t.status = StatusWaiting
		id, name := t.id, t.name
		s.mu.Unlock()

		s.log.Debug("task waiting on dependencies",
			logx.String("id", id), logx.String("task", name), logx.Int("deps", len(opt.DependsOn)))
		s.publish(eventbus.TypeTaskWaiting, TaskEvent{ID: id, Name: name, Status: StatusWaiting})
		go s.waitForDeps(t)
		return id, nil
	}

	if delay > 0 {
		t.timer = time.AfterFunc(delay, func() { s.runAttempt(t) })
		id := t.id
		s.mu.Unlock()
		return id, nil
	}

	id := t.id
	s.mu.Unlock()
	s.runAttempt(t)
	return id, nil
}

// SubmitRecurring registers a task that re-executes every interval until it
// is canceled or a cycle exhausts its retry budget. A successful cycle
// resets the retry count, so the budget is per cycle, not cumulative.
func (s *Scheduler) SubmitRecurring(work Func, interval time.Duration, opt Options) (string, error) {
	if work == nil {
		return "", ErrNilWork
	}
	if interval <= 0 {
		return "", ErrBadInterval
	}
	if len(opt.DependsOn) > 0 {
		return "", ErrRecurringDeps
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	t := s.registerLocked(work, opt)
	t.recurring = true
	t.delay = interval
	t.timer = time.AfterFunc(interval, func() { s.runAttempt(t) })
	id := t.id
	s.mu.Unlock()
	return id, nil
}

// SubmitCron registers a recurring task driven by a cron expression
// (standard 5-field specs plus descriptors like "@hourly"), evaluated in
// the configured timezone. Cycle retries re-arm immediately since a cron
// task has no fixed interval to reuse. A fire that arrives while the
// previous cycle is still executing or retrying is skipped.
func (s *Scheduler) SubmitCron(work Func, spec string, opt Options) (string, error) {
	if work == nil {
		return "", ErrNilWork
	}
	if len(opt.DependsOn) > 0 {
		return "", ErrRecurringDeps
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return "", fmt.Errorf("scheduler: parse cron spec %q: %w", spec, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
		s.cron.Start()
	}
	t := s.registerLocked(work, opt)
	t.recurring = true
	t.cronSpec = spec
	t.cronID = s.cron.Schedule(sched, cron.FuncJob(func() { s.runAttempt(t) }))
	id := t.id
	s.mu.Unlock()
	return id, nil
}

// registerLocked allocates an id and stores the initial record.
func (s *Scheduler) registerLocked(work Func, opt Options) *task {
	id := s.ids.Next()
	name := strings.TrimSpace(opt.Name)
	if name == "" {
		name = id
	}
	maxRetries := opt.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	t := &task{
		id:          id,
		name:        name,
		status:      StatusScheduled,
		maxRetries:  maxRetries,
		meta:        opt.Meta,
		run:         work,
		submittedAt: time.Now(),
	}
	s.tasks[id] = t
	return t
}

// Cancel stops a task's timer or cron association and forces StatusCanceled.
//
// It returns false when no cancelable association exists: unknown id,
// already-terminal task, or an immediate task that has no handle. A callback
// already in flight is not interrupted; its completion transition is
// suppressed instead.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok || t.status.Terminal() || !s.cancelLocked(t) {
		s.mu.Unlock()
		return false
	}
	name := t.name
	s.mu.Unlock()

	s.log.Debug("task canceled", logx.String("id", id), logx.String("task", name))
	s.publish(eventbus.TypeTaskCanceled, TaskEvent{ID: id, Name: name, Status: StatusCanceled})
	return true
}

func (s *Scheduler) cancelLocked(t *task) bool {
	hasAssoc := t.timer != nil || t.cronID != 0 || t.recurring ||
		t.status == StatusWaiting || t.status == StatusRetrying
	if !hasAssoc {
		return false
	}
	s.releaseHandleLocked(t)
	t.status = StatusCanceled
	s.wakeWaitersLocked()
	return true
}

func (s *Scheduler) releaseHandleLocked(t *task) {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cronID != 0 && s.cron != nil {
		s.cron.Remove(t.cronID)
		t.cronID = 0
	}
}

// SetStatus overrides a task's status. It exists for callers whose
// dependency "work" completes outside this scheduler: marking such a task
// StatusCompleted releases its dependents. Returns false for unknown ids.
func (s *Scheduler) SetStatus(id string, st Status) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	t.status = st
	if st.Terminal() {
		s.releaseHandleLocked(t)
		s.wakeWaitersLocked()
	}
	s.mu.Unlock()
	return true
}

// Get returns a copy of the task's registry record.
func (s *Scheduler) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Record{}, false
	}
	return t.recordLocked(), true
}

// Remove discards a terminal task's record. Terminal records are otherwise
// retained indefinitely for inspection; the registry is not a sized cache.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !t.status.Terminal() {
		return false
	}
	delete(s.tasks, id)
	return true
}

// Close cancels all outstanding tasks, stops the cron runner, and rejects
// further submissions with ErrClosed. Terminal records stay readable.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stopCh)
	canceled := 0
	for _, t := range s.tasks {
		if t.status.Terminal() {
			continue
		}
		s.releaseHandleLocked(t)
		t.status = StatusCanceled
		canceled++
	}
	s.wakeWaitersLocked()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	s.log.Info("scheduler closed", logx.Int("canceled", canceled))
}

func (t *task) recordLocked() Record {
	rec := Record{
		ID:          t.id,
		Name:        t.name,
		Status:      t.status,
		Recurring:   t.recurring,
		CronSpec:    t.cronSpec,
		Delay:       t.delay,
		DependsOn:   append([]string(nil), t.deps...),
		RetryCount:  t.retryCount,
		MaxRetries:  t.maxRetries,
		Meta:        t.meta,
		SubmittedAt: t.submittedAt,
	}
	if t.lastErr != nil {
		rec.LastError = t.lastErr.Error()
	}
	return rec
}

func (s *Scheduler) publish(typ string, ev TaskEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
