// Package schedule runs named repeating tasks on a cron scheduler. Each name
// has at most one entry; scheduling a name again replaces it.
package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler owns the repeating timers of the application.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool
	stopped bool
}

// New returns an idle scheduler. It starts on the first Every.
func New(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "schedule").Logger()
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{log: log}), cron.SkipIfStillRunning(cronLogger{log: log}))),
		log:     log,
		entries: make(map[string]cron.EntryID),
	}
}

// Every runs fn every d under name until the returned cancel func is called
// or the scheduler stops. Intervals below one second are rounded up.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) (func(), error) {
	if d <= 0 {
		return nil, fmt.Errorf("schedule: %s: interval must be positive, got %s", name, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, fmt.Errorf("schedule: %s: scheduler stopped", name)
	}
	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old)
	}
	id := s.cron.Schedule(cron.Every(d), cron.FuncJob(fn))
	s.entries[name] = id
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	s.log.Debug().Str("task", name).Dur("every", d).Msg("scheduled")

	return func() { s.cancel(name, id) }, nil
}

func (s *Scheduler) cancel(name string, id cron.EntryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A newer entry may own the name by now.
	if cur, ok := s.entries[name]; ok && cur == id {
		delete(s.entries, name)
		s.log.Debug().Str("task", name).Msg("cancelled")
	}
	s.cron.Remove(id)
}

// Cancel removes the task with name, if any.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if ok {
		s.cancel(name, id)
	}
}

// Names returns the scheduled task names.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Next returns the next run time of name.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Stop cancels every task and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	started := s.started
	s.stopped = true
	s.mu.Unlock()

	if started {
		<-s.cron.Stop().Done()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
