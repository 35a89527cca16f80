package voice

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminator/internal/audio"
	"terminator/pkg/stt"
)

type fakeSTT struct {
	text  string
	err   error
	calls atomic.Int64
}

func (f *fakeSTT) Transcribe(context.Context, []float32) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type recordView struct {
	statuses []string
	lines    []string
}

func (v *recordView) SetStatus(s string)     { v.statuses = append(v.statuses, s) }
func (v *recordView) Log(sender, msg string) { v.lines = append(v.lines, sender+": "+msg) }

func speech() []int16 {
	out := make([]int16, audio.SampleRate) // 1s tone, then 1s silence
	for i := range out {
		out[i] = int16(0.4 * 32767 * math.Sin(2*math.Pi*220*float64(i)/audio.SampleRate))
	}
	return append(out, make([]int16, audio.SampleRate)...)
}

func opener(samples []int16) Opener {
	return func() (audio.FrameSource, error) {
		return audio.NewSampleSource(samples, audio.Unpaced()), nil
	}
}

func TestListenTranscribes(t *testing.T) {
	t.Parallel()

	view := &recordView{}
	l := New(opener(speech()), &fakeSTT{text: " What time is it? "}, WithView(view))

	text, err := l.Listen(context.Background(), time.Second, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "What time is it?", text)
	assert.Equal(t, []string{"You: What time is it?"}, view.lines)
	assert.Equal(t, []string{StatusListening, StatusRecognizing}, view.statuses)
}

func TestListenTimeoutIsEmpty(t *testing.T) {
	t.Parallel()

	s := &fakeSTT{text: "never"}
	l := New(opener(make([]int16, 2*audio.SampleRate)), s)

	text, err := l.Listen(context.Background(), 500*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, s.calls.Load())
}

func TestListenBlankAudioIsEmpty(t *testing.T) {
	t.Parallel()

	l := New(opener(speech()), &fakeSTT{text: "[BLANK_AUDIO] (music)"})

	text, err := l.Listen(context.Background(), time.Second, 5*time.Second)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestListenServiceFailure(t *testing.T) {
	t.Parallel()

	l := New(opener(speech()), &fakeSTT{err: errors.New("model gone")})

	_, err := l.Listen(context.Background(), time.Second, 5*time.Second)
	assert.ErrorIs(t, err, stt.ErrServiceUnavailable)
}

func TestListenMicrophoneFailure(t *testing.T) {
	t.Parallel()

	l := New(func() (audio.FrameSource, error) { return nil, errors.New("no device") }, &fakeSTT{})

	_, err := l.Listen(context.Background(), time.Second, time.Second)
	assert.ErrorIs(t, err, ErrDevice)
	assert.ErrorContains(t, err, "no device")
	assert.NotErrorIs(t, err, stt.ErrServiceUnavailable)
}

type brokenSource struct{ startErr, readErr error }

func (b brokenSource) Start() error                { return b.startErr }
func (b brokenSource) ReadFrame() ([]int16, error) { return nil, b.readErr }
func (b brokenSource) Close() error                { return nil }

func TestListenDeviceErrors(t *testing.T) {
	t.Parallel()

	for name, src := range map[string]brokenSource{
		"start": {startErr: errors.New("device busy")},
		"read":  {readErr: errors.New("input overflowed")},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			l := New(func() (audio.FrameSource, error) { return src, nil }, &fakeSTT{text: "never"})
			_, err := l.Listen(context.Background(), time.Second, time.Second)
			assert.ErrorIs(t, err, ErrDevice)
			assert.NotErrorIs(t, err, stt.ErrServiceUnavailable)
		})
	}
}

type busyFor struct{ until time.Time }

func (b busyFor) Active() bool { return time.Now().Before(b.until) }

func TestListenWaitsForSpeechToFinish(t *testing.T) {
	t.Parallel()

	start := time.Now()
	l := New(opener(speech()), &fakeSTT{text: "ok"}, WithBusy(busyFor{until: start.Add(150 * time.Millisecond)}))

	_, err := l.Listen(context.Background(), time.Second, 5*time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestListenCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	l := New(opener(speech()), &fakeSTT{}, WithBusy(busyFor{until: time.Now().Add(time.Hour)}))

	_, err := l.Listen(ctx, time.Second, time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "open firefox", Clean("  open   firefox [inaudible] "))
	assert.Equal(t, "", Clean(" ... "))
	assert.Equal(t, "", Clean("*coughs*"))
}
