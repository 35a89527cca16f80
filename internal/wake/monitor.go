// Package wake watches an audio stream for the activation phrase.
package wake

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync/atomic"
	"time"

	"terminator/internal/audio"
)

var ErrUnavailable = errors.New("wake-word detection unavailable")

const (
	SourceWakeword = "wakeword"
	SourceIPC      = "ipc"
)

type Event struct {
	Source string
}

// Spotter decides whether a frame completes the activation phrase.
type Spotter interface {
	Process(frame []int16) (bool, error)
}

// Busy reports whether the assistant is speaking.
type Busy interface {
	Active() bool
}

type Monitor struct {
	src     audio.FrameSource
	spotter Spotter
	busy    Busy
	logger  *log.Logger

	debounce time.Duration
	retry    time.Duration

	events    chan Event
	available atomic.Bool
	done      chan struct{}
}

type Option func(*Monitor)

// WithBusy delays events detected while b is active, so the assistant does
// not wake itself up.
func WithBusy(b Busy) Option {
	return func(m *Monitor) { m.busy = b }
}

func WithDebounce(d time.Duration) Option {
	return func(m *Monitor) { m.debounce = d }
}

func WithRetryDelay(d time.Duration) Option {
	return func(m *Monitor) { m.retry = d }
}

// WithQueue sets how many unacknowledged events are kept.
func WithQueue(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.events = make(chan Event, n)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

func NewMonitor(src audio.FrameSource, spotter Spotter, opts ...Option) *Monitor {
	m := &Monitor{
		src:      src,
		spotter:  spotter,
		logger:   log.Default(),
		debounce: 400 * time.Millisecond,
		retry:    500 * time.Millisecond,
		events:   make(chan Event, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens the source and runs the detection loop on its own goroutine.
// If the source or spotter is unusable it returns ErrUnavailable and the
// monitor stays inert for the process lifetime.
func (m *Monitor) Start(ctx context.Context) error {
	if m.src == nil || m.spotter == nil {
		close(m.done)
		m.logger.Warn("wake-word monitor has no source or spotter")
		return ErrUnavailable
	}
	if err := m.src.Start(); err != nil {
		close(m.done)
		m.logger.Error("wake-word source failed to start", "err", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.available.Store(true)
	m.logger.Info("wake-word monitor started")
	go m.run(ctx)
	return nil
}

func (m *Monitor) Available() bool {
	return m.available.Load()
}

func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Done is closed once the loop has exited and the source is released.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Trigger enqueues an event without blocking. A full queue already holds an
// unacknowledged wake, so the new one is dropped.
func (m *Monitor) Trigger(source string) bool {
	select {
	case m.events <- Event{Source: source}:
		return true
	default:
		m.logger.Debug("wake event coalesced", "source", source)
		return false
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	defer func() {
		m.available.Store(false)
		if err := m.src.Close(); err != nil {
			m.logger.Warn("close wake source", "err", err)
		}
	}()

	for ctx.Err() == nil {
		frame, err := m.src.ReadFrame()
		if err != nil {
			m.logger.Warn("wake frame read failed", "err", err)
			m.sleep(ctx, m.retry)
			continue
		}

		hit, err := m.spotter.Process(frame)
		if err != nil {
			m.logger.Warn("keyword spotting failed", "err", err)
			m.sleep(ctx, m.retry)
			continue
		}
		if !hit {
			continue
		}

		m.logger.Debug("wake word detected")
		if m.busy != nil && m.busy.Active() {
			m.sleep(ctx, m.debounce)
		}
		if ctx.Err() != nil {
			return
		}
		m.Trigger(SourceWakeword)
	}
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
