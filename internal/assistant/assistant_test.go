package assistant

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminator/internal/intent"
	"terminator/internal/voice"
	"terminator/internal/wake"
	"terminator/pkg/stt"
)

type speaker struct {
	mu    sync.Mutex
	lines []string
}

func (s *speaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *speaker) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

type heard struct {
	text string
	err  error
}

// listener plays a script and then hears silence.
type listener struct {
	mu     sync.Mutex
	script []heard
	calls  int
}

func (l *listener) Listen(context.Context, time.Duration, time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if len(l.script) == 0 {
		time.Sleep(time.Millisecond)
		return "", nil
	}
	h := l.script[0]
	l.script = l.script[1:]
	return h.text, h.err
}

type dispatcher struct {
	mu    sync.Mutex
	texts []string
	panic bool
}

func (d *dispatcher) Dispatch(_ context.Context, text string) intent.Outcome {
	d.mu.Lock()
	d.texts = append(d.texts, text)
	d.mu.Unlock()
	if d.panic {
		panic("handler blew up")
	}
	if text == "exit" {
		return intent.Outcome{Action: intent.Terminate, Rule: "exit"}
	}
	return intent.Outcome{Action: intent.Continue, Rule: "test"}
}

func (d *dispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.texts...)
}

type monitor struct {
	events chan wake.Event
	err    error
}

func (m *monitor) Start(context.Context) error { return m.err }
func (m *monitor) Events() <-chan wake.Event   { return m.events }

func (m *monitor) push(n int) {
	for range n {
		m.events <- wake.Event{Source: wake.SourceWakeword}
	}
}

type scheduler struct {
	started, stopped bool
}

func (s *scheduler) Start() error {
	s.started = true
	return nil
}

func (s *scheduler) Stop() { s.stopped = true }

func morning() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestDirectModeUntilTerminate(t *testing.T) {
	t.Parallel()

	sp := &speaker{}
	l := &listener{script: []heard{{text: "what time is it"}, {}, {text: "exit"}}}
	d := &dispatcher{}
	rem := &scheduler{}
	var built []string

	a := New(sp, l, d, &intent.Session{UserName: "Sarah"},
		WithClock(morning),
		WithReminders(rem),
		WithIndexers(
			Indexer{Announce: "Scanning for installed applications.", Build: func() int { built = append(built, "apps"); return 3 }},
			Indexer{Announce: "Indexing local music files.", Build: func() int { built = append(built, "music"); return 0 }},
		),
	)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []string{"what time is it", "exit"}, d.dispatched())
	assert.Equal(t, []string{"apps", "music"}, built)
	assert.True(t, rem.started)
	assert.True(t, rem.stopped)
	assert.Equal(t, []string{
		"Scanning for installed applications.",
		"Indexing local music files.",
		"Good morning, Sarah. terminator at your service. Say 'terminator' to activate.",
		"Wake-word is disabled. I'll listen for commands directly.",
		"Reminder system activated.",
	}, sp.said())
}

func TestWakeEventsCoalesce(t *testing.T) {
	t.Parallel()

	sp := &speaker{}
	l := &listener{script: []heard{{text: "exit"}}}
	d := &dispatcher{}
	m := &monitor{events: make(chan wake.Event, 3)}
	m.push(3)
	chimes := 0

	a := New(sp, l, d, &intent.Session{UserName: "Sarah"},
		WithClock(morning), WithWake(m), WithIdleTick(time.Millisecond),
		WithChime(func() { chimes++ }))

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, 1, chimes)
	assert.Empty(t, m.events)
	assert.Equal(t, []string{"exit"}, d.dispatched())

	said := sp.said()
	assert.Contains(t, said, "Wake-word listener is now active. Please say 'terminator' to begin.")
	assert.Equal(t, "Yes, Sarah.", said[len(said)-1])
}

func TestTypedCommandsWhileWaiting(t *testing.T) {
	t.Parallel()

	l := &listener{}
	d := &dispatcher{}
	m := &monitor{events: make(chan wake.Event, 1)}
	cmds := make(chan string, 2)
	cmds <- "tell me a joke"
	cmds <- "exit"

	a := New(&speaker{}, l, d, nil, WithWake(m), WithCommands(cmds), WithIdleTick(time.Millisecond))
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []string{"tell me a joke", "exit"}, d.dispatched())
	assert.Zero(t, l.calls)
}

func TestWakeFailureFallsBackToDirect(t *testing.T) {
	t.Parallel()

	sp := &speaker{}
	l := &listener{script: []heard{{text: "exit"}}}
	m := &monitor{events: make(chan wake.Event, 1), err: wake.ErrUnavailable}

	a := New(sp, l, &dispatcher{}, nil, WithWake(m))
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, sp.said(), "Wake-word is disabled. I'll listen for commands directly.")
	assert.Contains(t, sp.said()[0], ", sir. terminator at your service.")
}

func TestSpeechServiceErrorIsSpoken(t *testing.T) {
	t.Parallel()

	sp := &speaker{}
	l := &listener{script: []heard{
		{err: fmt.Errorf("transcribe: %w", stt.ErrServiceUnavailable)},
		{text: "exit"},
	}}
	d := &dispatcher{}

	require.NoError(t, New(sp, l, d, nil).Run(context.Background()))
	assert.Contains(t, sp.said(), "I couldn't reach the speech service.")
	assert.Equal(t, []string{"exit"}, d.dispatched())
}

func TestMicrophoneErrorKeepsLooping(t *testing.T) {
	t.Parallel()

	sp := &speaker{}
	l := &listener{script: []heard{
		{err: fmt.Errorf("%w: open: device busy", voice.ErrDevice)},
		{text: "exit"},
	}}
	d := &dispatcher{}

	start := time.Now()
	err := New(sp, l, d, nil, WithDeviceRetry(50*time.Millisecond)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"exit"}, d.dispatched())
	assert.Contains(t, sp.said(), "I couldn't access the microphone.")
	assert.NotContains(t, sp.said(), "An unexpected error occurred. I'm shutting down.")
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestUnexpectedFailureShutsDown(t *testing.T) {
	t.Parallel()

	sp := &speaker{}
	l := &listener{script: []heard{{text: "crash please"}, {text: "exit"}}}
	d := &dispatcher{panic: true}
	rem := &scheduler{}

	err := New(sp, l, d, nil, WithReminders(rem)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler blew up")
	assert.True(t, rem.stopped)

	said := sp.said()
	assert.Equal(t, "An unexpected error occurred. I'm shutting down.", said[len(said)-1])
	assert.Equal(t, []string{"crash please"}, d.dispatched())
}

func TestCancelSpeaksFarewell(t *testing.T) {
	t.Parallel()

	sp := &speaker{}
	m := &monitor{events: make(chan wake.Event, 1)}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, New(sp, &listener{}, &dispatcher{}, nil, WithWake(m), WithIdleTick(5*time.Millisecond)).Run(ctx))
	said := sp.said()
	assert.Equal(t, "Shutting down now. Goodbye.", said[len(said)-1])
}

func TestGreetingByHour(t *testing.T) {
	t.Parallel()

	for hour, want := range map[int]string{8: "Good morning", 13: "Good afternoon", 21: "Good evening"} {
		clock := func() time.Time { return time.Date(2026, 1, 1, hour, 0, 0, 0, time.Local) }
		a := New(&speaker{}, nil, nil, &intent.Session{UserName: "Ann"}, WithClock(clock), WithName("jarvis"))
		assert.Equal(t, want+", Ann. jarvis at your service. Say 'jarvis' to activate.", a.greeting())
	}
}
