// Package assistant runs the top-level command loop: startup announcements,
// waiting for a wake event or typed command, listening, and dispatching until
// a command asks to stop.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"terminator/internal/intent"
	"terminator/internal/ports"
	"terminator/internal/voice"
	"terminator/internal/wake"
	"terminator/pkg/stt"
)

const (
	StatusIdle    = "Idle"
	StatusWaiting = "Waiting for wake word..."

	DefaultName     = "terminator"
	DefaultUserName = "sir"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, text string) intent.Outcome
}

type Wake interface {
	Start(ctx context.Context) error
	Events() <-chan wake.Event
}

type Reminders interface {
	Start() error
	Stop()
}

// Indexer builds one resource index at startup and reports its size.
type Indexer struct {
	Announce string
	Build    func() int
}

type Assistant struct {
	speaker    ports.Speaker
	listener   ports.Listener
	dispatcher Dispatcher
	session    *intent.Session

	view      ports.StatusView
	wake      Wake
	reminders Reminders
	indexers  []Indexer
	commands  <-chan string
	chime     func()

	name        string
	idle        time.Duration
	listenFor   time.Duration
	phraseLimit time.Duration
	retry       time.Duration
	now         func() time.Time
	logger      *log.Logger
}

type Option func(*Assistant)

func WithView(v ports.StatusView) Option {
	return func(a *Assistant) { a.view = v }
}

// WithWake enables wake-word mode. Without it, or if the monitor fails to
// start, the loop listens for a command every cycle.
func WithWake(w Wake) Option {
	return func(a *Assistant) { a.wake = w }
}

func WithReminders(r Reminders) Option {
	return func(a *Assistant) { a.reminders = r }
}

func WithIndexers(ix ...Indexer) Option {
	return func(a *Assistant) { a.indexers = append(a.indexers, ix...) }
}

// WithCommands feeds typed commands into the loop. They are dispatched like
// spoken ones.
func WithCommands(ch <-chan string) Option {
	return func(a *Assistant) { a.commands = ch }
}

// WithChime plays a short sound when a wake event is taken.
func WithChime(f func()) Option {
	return func(a *Assistant) { a.chime = f }
}

func WithName(name string) Option {
	return func(a *Assistant) { a.name = name }
}

func WithIdleTick(d time.Duration) Option {
	return func(a *Assistant) { a.idle = d }
}

func WithListen(timeout, phraseLimit time.Duration) Option {
	return func(a *Assistant) { a.listenFor, a.phraseLimit = timeout, phraseLimit }
}

// WithDeviceRetry sets the pause after a microphone failure before the next
// cycle listens again.
func WithDeviceRetry(d time.Duration) Option {
	return func(a *Assistant) { a.retry = d }
}

func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

func New(speaker ports.Speaker, listener ports.Listener, d Dispatcher, session *intent.Session, opts ...Option) *Assistant {
	if session == nil {
		session = &intent.Session{}
	}
	if session.UserName == "" {
		session.UserName = DefaultUserName
	}
	a := &Assistant{
		speaker:     speaker,
		listener:    listener,
		dispatcher:  d,
		session:     session,
		name:        DefaultName,
		idle:        100 * time.Millisecond,
		listenFor:   6 * time.Second,
		phraseLimit: 8 * time.Second,
		retry:       time.Second,
		now:         time.Now,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run blocks until a command terminates the session, ctx is cancelled or a
// cycle fails unexpectedly. Every path out speaks a farewell; only the last
// one returns an error.
func (a *Assistant) Run(ctx context.Context) error {
	wakeMode := a.startup(ctx)
	if a.reminders != nil {
		defer a.reminders.Stop()
	}

	for {
		if ctx.Err() != nil {
			a.logSystem("Shutting down...")
			a.speaker.Speak("Shutting down now. Goodbye.")
			return nil
		}

		stop, err := a.cycle(ctx, wakeMode)
		if err != nil {
			a.logger.Error("assistant cycle failed", "err", err)
			if a.view != nil {
				a.view.Log("ERROR", fmt.Sprintf("An unexpected error occurred: %v", err))
			}
			a.speaker.Speak("An unexpected error occurred. I'm shutting down.")
			return err
		}
		if stop {
			a.logger.Info("session terminated by command")
			return nil
		}
	}
}

// startup announces and builds the indexes, greets the user and starts the
// background workers. It reports whether wake-word mode is active.
func (a *Assistant) startup(ctx context.Context) bool {
	for _, ix := range a.indexers {
		if ix.Announce != "" {
			a.speaker.Speak(ix.Announce)
		}
		n := ix.Build()
		a.logger.Info("index built", "task", ix.Announce, "entries", n)
	}

	a.speaker.Speak(a.greeting())
	a.setStatus(StatusIdle)

	wakeMode := false
	if a.wake != nil {
		if err := a.wake.Start(ctx); err != nil {
			a.logger.Warn("wake-word disabled", "err", err)
		} else {
			wakeMode = true
		}
	}
	if wakeMode {
		a.setStatus(StatusWaiting)
		a.speaker.Speak(fmt.Sprintf("Wake-word listener is now active. Please say '%s' to begin.", a.name))
	} else {
		a.logSystem("Wake-word listener is disabled. Listening for commands directly.")
		a.speaker.Speak("Wake-word is disabled. I'll listen for commands directly.")
	}

	if a.reminders != nil {
		if err := a.reminders.Start(); err != nil {
			a.logger.Error("reminder scheduler failed to start", "err", err)
		} else {
			a.speaker.Speak("Reminder system activated.")
		}
	}
	return wakeMode
}

func (a *Assistant) greeting() string {
	var part string
	switch h := a.now().Hour(); {
	case h < 12:
		part = "Good morning"
	case h < 18:
		part = "Good afternoon"
	default:
		part = "Good evening"
	}
	return fmt.Sprintf("%s, %s. %s at your service. Say '%s' to activate.", part, a.session.UserName, a.name, a.name)
}

// cycle waits for one command and dispatches it. A panic anywhere in the
// cycle is turned into an error.
func (a *Assistant) cycle(ctx context.Context, wakeMode bool) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	var text string
	if wakeMode {
		text, err = a.awaitWake(ctx)
	} else {
		text, err = a.listenDirect(ctx)
	}
	switch {
	case err == nil:
	case errors.Is(err, stt.ErrServiceUnavailable):
		a.logger.Warn("speech service error", "err", err)
		a.speaker.Speak("I couldn't reach the speech service.")
		return false, nil
	case errors.Is(err, voice.ErrDevice):
		a.logger.Warn("microphone error", "err", err)
		a.speaker.Speak("I couldn't access the microphone.")
		a.pause(ctx, a.retry)
		return false, nil
	case ctx.Err() != nil:
		return false, nil
	default:
		return false, err
	}
	if text == "" {
		return false, nil
	}

	out := a.dispatcher.Dispatch(ctx, text)
	a.logger.Debug("dispatched", "rule", out.Rule, "action", out.Action)
	return out.Action == intent.Terminate, nil
}

func (a *Assistant) awaitWake(ctx context.Context) (string, error) {
	tick := time.NewTimer(a.idle)
	defer tick.Stop()

	select {
	case <-ctx.Done():
		return "", nil
	case cmd := <-a.commands:
		a.logSystem("Typed command: " + cmd)
		return cmd, nil
	case ev := <-a.wake.Events():
		a.drain()
		a.logger.Info("wake event", "source", ev.Source)
		if a.chime != nil {
			a.chime()
		}
		a.speaker.Speak(fmt.Sprintf("Yes, %s.", a.session.UserName))
		return a.listen(ctx)
	case <-tick.C:
		return "", nil
	}
}

// drain drops wake events that piled up while the previous command ran.
func (a *Assistant) drain() {
	for {
		select {
		case <-a.wake.Events():
		default:
			return
		}
	}
}

func (a *Assistant) listenDirect(ctx context.Context) (string, error) {
	select {
	case cmd := <-a.commands:
		a.logSystem("Typed command: " + cmd)
		return cmd, nil
	default:
	}
	return a.listen(ctx)
}

func (a *Assistant) listen(ctx context.Context) (string, error) {
	if a.listener == nil {
		return "", errors.New("no listener configured")
	}
	return a.listener.Listen(ctx, a.listenFor, a.phraseLimit)
}

func (a *Assistant) pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (a *Assistant) setStatus(s string) {
	if a.view != nil {
		a.view.SetStatus(s)
	}
}

func (a *Assistant) logSystem(msg string) {
	if a.view != nil {
		a.view.Log("SYSTEM", msg)
	}
}
