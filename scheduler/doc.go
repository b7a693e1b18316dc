// Package scheduler is an in-process task scheduler.
//
// It accepts units of work and executes them immediately, after a delay,
// repeatedly on an interval or cron expression, or once named prerequisite
// tasks have completed. Each task carries a lifecycle status; failed
// attempts are retried up to a per-task budget, reusing the task's own
// delay or interval as the retry spacing.
//
// A Scheduler is instantiable and self-contained: independent schedulers
// share no state. Admission control (concurrency limiting, prioritization,
// rate limiting) is deliberately left to the caller, who can wrap work or
// gate Submit before it reaches the scheduler.
package scheduler
