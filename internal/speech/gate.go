// Package speech serialises everything the assistant says.
//
// The underlying renderer (espeak-ng in production) is not safe for
// concurrent use, so every utterance goes through a single Gate. Concurrent
// callers queue on the gate's mutex; nothing is dropped and no two
// utterances overlap.
package speech

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"terminator/internal/ports"
)

const (
	StatusIdle     = "Idle"
	StatusSpeaking = "Speaking..."

	DefaultCooldown = 350 * time.Millisecond
)

// Renderer turns text into audible speech, blocking until playback ends.
type Renderer interface {
	Render(text string) error
}

// Ducker lowers other audio streams while the assistant talks.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, duration time.Duration) error
	UnduckOthers(ctx context.Context, duration time.Duration) error
}

type Gate struct {
	mu     sync.Mutex
	active atomic.Bool

	renderer Renderer
	view     ports.StatusView
	ducker   Ducker
	cooldown time.Duration
	sender   string
	logger   *log.Logger
}

type Option func(*Gate)

func WithView(v ports.StatusView) Option {
	return func(g *Gate) { g.view = v }
}

func WithDucker(d Ducker) Option {
	return func(g *Gate) { g.ducker = d }
}

// WithCooldown sets the pause held after each utterance before the gate
// reports idle again.
func WithCooldown(d time.Duration) Option {
	return func(g *Gate) { g.cooldown = d }
}

func WithSender(name string) Option {
	return func(g *Gate) { g.sender = name }
}

func WithLogger(l *log.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

func NewGate(r Renderer, opts ...Option) *Gate {
	g := &Gate{
		renderer: r,
		cooldown: DefaultCooldown,
		sender:   "terminator",
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Speak renders text while holding the gate. Render failures are logged and
// never returned: a broken speech backend must not stop command handling.
func (g *Gate) Speak(text string) {
	if text == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.active.Store(true)
	defer g.active.Store(false)

	g.setStatus(StatusSpeaking)
	if g.view != nil {
		g.view.Log(g.sender, text)
	}

	defer func() {
		time.Sleep(g.cooldown)
		g.setStatus(StatusIdle)
	}()

	g.duck()
	defer g.unduck()

	if err := g.render(text); err != nil {
		g.logger.Error("TTS error", "err", err)
	}
}

// Active reports whether an utterance (or its cooldown) is in progress.
func (g *Gate) Active() bool {
	return g.active.Load()
}

func (g *Gate) render(text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()

	if g.renderer == nil {
		return fmt.Errorf("no renderer")
	}
	return g.renderer.Render(text)
}

func (g *Gate) setStatus(s string) {
	if g.view != nil {
		g.view.SetStatus(s)
	}
}

func (g *Gate) duck() {
	if g.ducker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.ducker.DuckOthers(ctx, 0.3, 150*time.Millisecond); err != nil {
		g.logger.Debug("Failed to duck audio", "err", err)
	}
}

func (g *Gate) unduck() {
	if g.ducker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.ducker.UnduckOthers(ctx, 300*time.Millisecond); err != nil {
		g.logger.Debug("Failed to restore audio", "err", err)
	}
}
