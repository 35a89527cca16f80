// Package reminder fires spoken reminders when they come due.
//
// Pending reminders live in a mutex-guarded slice. A cron entry ticks at a
// fixed interval; each tick takes the due reminders out of the slice, puts
// the rest back and speaks the due ones outside the lock. A reminder is
// removed before it is spoken, so it is delivered at most once.
package reminder

import (
	"errors"
	"fmt"
	log "log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"terminator/internal/ports"
)

const DefaultTick = time.Second

var (
	ErrPastTime     = errors.New("reminder time is not in the future")
	ErrEmptyMessage = errors.New("reminder message is empty")
)

type Reminder struct {
	ID      uuid.UUID
	FireAt  time.Time
	Message string
}

type Scheduler struct {
	mu      sync.Mutex
	pending []Reminder

	speaker ports.Speaker
	view    ports.StatusView
	tick    time.Duration
	now     func() time.Time
	logger  *log.Logger

	cron *cron.Cron
}

type Option func(*Scheduler)

// WithTick sets the polling interval. cron schedules run at one-second
// resolution, so anything shorter is rounded up to a second.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithView(v ports.StatusView) Option {
	return func(s *Scheduler) { s.view = v }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func New(speaker ports.Speaker, opts ...Option) *Scheduler {
	s := &Scheduler{
		speaker: speaker,
		tick:    DefaultTick,
		now:     time.Now,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tick <= 0 {
		s.tick = DefaultTick
	}
	return s
}

// Add queues a reminder that fires at fireAt.
func (s *Scheduler) Add(fireAt time.Time, message string) (Reminder, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reminder{}, ErrEmptyMessage
	}
	if !fireAt.After(s.now()) {
		return Reminder{}, fmt.Errorf("%w: %s", ErrPastTime, fireAt.Format(time.RFC3339))
	}

	r := Reminder{ID: uuid.New(), FireAt: fireAt, Message: message}

	s.mu.Lock()
	s.pending = append(s.pending, r)
	s.mu.Unlock()

	s.logger.Info("Reminder scheduled", "id", r.ID, "at", fireAt, "message", message)
	return r, nil
}

// Schedule adapts Add to the dispatcher's reminder port.
func (s *Scheduler) Schedule(fireAt time.Time, message string) error {
	_, err := s.Add(fireAt, message)
	return err
}

// Cancel drops a pending reminder. It reports false if the reminder already
// fired or never existed.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.pending {
		if r.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			s.logger.Info("Reminder cancelled", "id", id)
			return true
		}
	}
	return false
}

// Pending returns a snapshot of queued reminders ordered by fire time.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	out := append([]Reminder(nil), s.pending...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Tick delivers every reminder due at now and returns how many were spoken.
func (s *Scheduler) Tick(now time.Time) int {
	s.mu.Lock()
	var due []Reminder
	keep := s.pending[:0]
	for _, r := range s.pending {
		if !r.FireAt.After(now) {
			due = append(due, r)
		} else {
			keep = append(keep, r)
		}
	}
	s.pending = keep
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })

	delivered := 0
	for _, r := range due {
		if s.deliver(r) {
			delivered++
		}
	}
	return delivered
}

func (s *Scheduler) deliver(r Reminder) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Reminder worker error", "id", r.ID, "err", rec)
			ok = false
		}
	}()

	s.speaker.Speak("Reminder: " + r.Message)
	if s.view != nil {
		s.view.Log("REMINDER", r.Message)
	}
	s.logger.Info("Reminder delivered", "id", r.ID, "late", s.now().Sub(r.FireAt).Round(time.Millisecond))
	return true
}

// Start runs Tick on a cron schedule until Stop is called.
func (s *Scheduler) Start() error {
	if s.cron != nil {
		return errors.New("reminder scheduler already started")
	}

	logger := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s.cron.Schedule(cron.Every(s.tick), cron.FuncJob(func() {
		s.Tick(s.now())
	}))
	s.cron.Start()

	s.logger.Info("Reminder scheduler started", "tick", s.tick)
	return nil
}

// Stop halts the ticker and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron: "+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, append(kv, "err", err)...)
}
