// Package intent routes a transcribed command to the first matching rule of a
// fixed, ordered table. The last rule matches everything, so every command
// produces an observable action.
package intent

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"terminator/internal/nlu"
	"terminator/internal/ports"
)

type Action int

const (
	Continue Action = iota
	Terminate
)

func (a Action) String() string {
	if a == Terminate {
		return "terminate"
	}
	return "continue"
}

// Outcome tells the caller whether to keep running. Side effects have already
// happened or were handed to a background worker.
type Outcome struct {
	Action Action
	Rule   string
}

// Request is one command as heard and as normalized.
type Request struct {
	Raw  string
	Text string
}

func NewRequest(raw string) Request {
	raw = strings.TrimSpace(raw)
	return Request{Raw: raw, Text: nlu.Normalize(raw)}
}

type Rule struct {
	Name   string
	Match  func(Request) bool
	Handle func(ctx context.Context, req Request) Outcome
}

// Session is owned by the orchestration loop; the dispatcher only records the
// last command in it.
type Session struct {
	UserName           string
	LastCommandContext string
}

// Deps are the collaborators the handlers use. A nil collaborator is a
// feature that is not configured.
type Deps struct {
	Speaker  ports.Speaker
	Listener ports.Listener
	View     ports.StatusView

	Apps  ports.Resources
	Music ports.Resources

	Weather      ports.Weather
	News         ports.News
	Encyclopedia ports.Encyclopedia
	Images       ports.ImageGenerator
	Mail         ports.Mailer
	Messenger    ports.Messenger
	Browser      ports.Browser
	Launcher     ports.Launcher
	Processes    ports.Processes
	System       ports.SystemStats
	Desktop      ports.Desktop
	Clipboard    ports.Clipboard
	Screenshots  ports.Screenshotter
	Notes        ports.Notes
	Volume       ports.Volume
	Player       ports.Music
	Devices      ports.Devices
	Reminders    ports.Reminders

	// Joke returns a joke to tell; nil disables jokes.
	Joke func() string
	// DefaultCity answers a bare "weather" question.
	DefaultCity string
	Now         func() time.Time
	Logger      *log.Logger
	// WorkerTimeout bounds each background job; two minutes when zero.
	WorkerTimeout time.Duration
}

type Dispatcher struct {
	deps    Deps
	session *Session
	rules   []Rule
	logger  *log.Logger

	workers sync.WaitGroup

	mu       sync.Mutex
	disabled map[string]bool
}

func New(deps Deps, session *Session) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.WorkerTimeout <= 0 {
		deps.WorkerTimeout = 2 * time.Minute
	}
	if session == nil {
		session = &Session{}
	}

	d := &Dispatcher{
		deps:     deps,
		session:  session,
		logger:   deps.Logger,
		disabled: map[string]bool{},
	}
	d.rules = d.table()
	return d
}

// Rules returns the rule names in priority order.
func (d *Dispatcher) Rules() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name
	}
	return names
}

// Match returns the name of the rule text would be routed to, without
// running it.
func (d *Dispatcher) Match(text string) string {
	req := NewRequest(text)
	for _, r := range d.rules {
		if r.Match(req) {
			return r.Name
		}
	}
	return ""
}

func (d *Dispatcher) Dispatch(ctx context.Context, text string) Outcome {
	req := NewRequest(text)
	d.session.LastCommandContext = req.Text

	for _, r := range d.rules {
		if !r.Match(req) {
			continue
		}
		d.logger.Info("dispatch", "rule", r.Name, "text", req.Text)
		out := r.Handle(ctx, req)
		out.Rule = r.Name
		return out
	}
	// The catch-all rule always matches.
	panic("intent: no rule matched " + req.Text)
}

// Wait blocks until every background job has finished.
func (d *Dispatcher) Wait() {
	d.workers.Wait()
}

// spawn runs job on its own goroutine. The job outlives the dispatch call
// but not WorkerTimeout.
func (d *Dispatcher) spawn(ctx context.Context, name string, job func(ctx context.Context)) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.deps.WorkerTimeout)
	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("background job panicked", "job", name, "panic", r)
			}
		}()
		job(wctx)
	}()
}

func (d *Dispatcher) say(text string) {
	if d.deps.Speaker != nil {
		d.deps.Speaker.Speak(text)
	}
}

func (d *Dispatcher) sayf(format string, args ...any) {
	d.say(fmt.Sprintf(format, args...))
}

func (d *Dispatcher) logSystem(msg string) {
	if d.deps.View != nil {
		d.deps.View.Log("SYSTEM", msg)
	}
}

// ask speaks question and waits for one answer. An empty answer means the
// user said nothing usable; the caller cancels its flow.
func (d *Dispatcher) ask(ctx context.Context, question string, timeout, phraseLimit time.Duration) string {
	d.say(question)
	if d.deps.Listener == nil {
		return ""
	}
	text, err := d.deps.Listener.Listen(ctx, timeout, phraseLimit)
	if err != nil {
		d.logger.Warn("prompt listen failed", "err", err)
		return ""
	}
	return strings.TrimSpace(text)
}

type feature struct {
	key   string
	label string
	setup string
}

var (
	featWeather   = feature{"weather", "Weather", "Weather feature is not configured. Set the OpenWeather API key in the environment."}
	featNews      = feature{"news", "News", "News feature is not configured. Please add your News API key."}
	featWiki      = feature{"wikipedia", "Wikipedia", "Wikipedia lookup is not available."}
	featImages    = feature{"images", "Image generation", "Image generation is not configured. Please add your OpenAI API key."}
	featEmail     = feature{"email", "Email", "Email feature is not configured. Please set up your email address and app password in the environment variables."}
	featMessage   = feature{"message", "Messaging", "Messaging is not configured. Please add your Telegram bot token and contacts."}
	featDevices   = feature{"devices", "Smart home control", "Smart home control is not configured. Please set the hub address."}
	featMusic     = feature{"music", "Music playback", "Music playback is not available on this system."}
	featVolume    = feature{"volume", "Volume control", "Volume control is not available on this system."}
	featClipboard = feature{"clipboard", "Clipboard", "Clipboard support is not available on this system."}
	featSystem    = feature{"system", "System information", "System information is not available on this system."}
	featScreen    = feature{"screenshot", "Screenshots", "Screenshots are not available on this system."}
	featNotes     = feature{"notes", "Notes", "Notes are not configured."}
	featWindows   = feature{"windows", "Window management", "Window management is not available on this system."}
	featReminders = feature{"reminders", "Reminders", "The reminder system is not running."}
)

// usable reports whether f can be used. A missing or disabled feature is
// explained once per session and answered with a short notice afterwards.
func (d *Dispatcher) usable(f feature, present bool) bool {
	if !present {
		d.disable(f)
		return false
	}
	d.mu.Lock()
	off := d.disabled[f.key]
	d.mu.Unlock()
	if off {
		d.sayf("%s is unavailable.", f.label)
		return false
	}
	return true
}

func (d *Dispatcher) disable(f feature) {
	d.mu.Lock()
	first := !d.disabled[f.key]
	d.disabled[f.key] = true
	d.mu.Unlock()

	if first {
		d.logger.Warn("feature not configured", "feature", f.key)
		d.say(f.setup)
		return
	}
	d.sayf("%s is unavailable.", f.label)
}

// failed reports a collaborator error. Missing configuration disables the
// feature; anything else is logged and answered with msg.
func (d *Dispatcher) failed(f feature, err error, msg string) {
	if errors.Is(err, ports.ErrNotConfigured) {
		d.disable(f)
		return
	}
	d.logger.Error("action failed", "feature", f.key, "err", err)
	d.say(msg)
}

func cont() Outcome {
	return Outcome{Action: Continue}
}

func terminate() Outcome {
	return Outcome{Action: Terminate}
}
