package scheduler

import (
	"errors"
	"testing"
	"time"

	logx "taskmill/pkg/logx"
)

func TestSubmitCronInvalidSpec(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	for _, spec := range []string{"", "not a spec", "* * * *", "@fortnightly"} {
		if _, err := s.SubmitCron(func() error { return nil }, spec, Options{}); err == nil {
			t.Errorf("SubmitCron(%q) should reject the spec", spec)
		}
	}
}

func TestSubmitCronRejectsDependencies(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	_, err := s.SubmitCron(func() error { return nil }, "@hourly", Options{DependsOn: []string{"1-0"}})
	if !errors.Is(err, ErrRecurringDeps) {
		t.Fatalf("error = %v, want ErrRecurringDeps", err)
	}
}

func TestSubmitCronFiresOnSchedule(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	var runs counter
	id, err := s.SubmitCron(func() error { runs.inc(); return nil }, "@every 20ms", Options{Name: "heartbeat"})
	if err != nil {
		t.Fatalf("SubmitCron error: %v", err)
	}
	rec, ok := s.Get(id)
	if !ok || !rec.Recurring || rec.CronSpec != "@every 20ms" {
		t.Fatalf("record = %+v, want recurring cron entry", rec)
	}

	waitFor(t, func() bool { return runs.get() >= 2 }, "cron task should fire repeatedly")

	if !s.Cancel(id) {
		t.Fatal("Cancel on an active cron task should return true")
	}
	after := runs.get()
	time.Sleep(80 * time.Millisecond)
	if runs.get() > after+1 {
		t.Fatalf("cron task fired after cancel: %d -> %d", after, runs.get())
	}
}

func TestSubmitCronRetriesWithinCycle(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	var calls counter
	id, err := s.SubmitCron(func() error {
		calls.inc()
		if calls.get() == 1 {
			return errors.New("flaky")
		}
		return nil
	}, "@every 25ms", Options{MaxRetries: 1})
	if err != nil {
		t.Fatalf("SubmitCron error: %v", err)
	}

	// The first fire fails and the retry re-arms immediately, so the second
	// attempt lands well before the next cron tick.
	waitFor(t, func() bool { return calls.get() >= 2 }, "cron retry never ran")
	rec, _ := s.Get(id)
	if rec.Status == StatusFailed {
		t.Fatalf("cycle should have recovered via retry, status = %s", rec.Status)
	}
	s.Cancel(id)
}

func TestCronInvalidTimezoneFallsBack(t *testing.T) {
	t.Parallel()
	s := New(Config{PollInterval: 10 * time.Millisecond, Timezone: "Mars/Olympus"}, logx.Nop(), nil)
	t.Cleanup(s.Close)

	if _, err := s.SubmitCron(func() error { return nil }, "@daily", Options{}); err != nil {
		t.Fatalf("SubmitCron with fallback zone should register: %v", err)
	}
}
