// Package voice captures one spoken utterance and transcribes it.
package voice

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"time"

	"terminator/internal/audio"
	"terminator/internal/ports"
	"terminator/pkg/stt"
)

// ErrDevice marks a microphone that could not be opened or read. It ends
// the current listen only.
var ErrDevice = errors.New("microphone unavailable")

const (
	StatusListening   = "Listening..."
	StatusRecognizing = "Recognizing..."
)

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

type Busy interface {
	Active() bool
}

// Opener returns a fresh, not yet started frame source for one capture.
type Opener func() (audio.FrameSource, error)

type Listener struct {
	open    Opener
	stt     Transcriber
	busy    Busy
	view    ports.StatusView
	logger  *log.Logger
	capture audio.CaptureOptions

	recognizeTimeout time.Duration
	poll             time.Duration
}

type Option func(*Listener)

// WithBusy makes Listen wait until b is idle, so the assistant never
// transcribes its own voice.
func WithBusy(b Busy) Option {
	return func(l *Listener) { l.busy = b }
}

func WithView(v ports.StatusView) Option {
	return func(l *Listener) { l.view = v }
}

func WithLogger(lg *log.Logger) Option {
	return func(l *Listener) { l.logger = lg }
}

// WithCapture overrides the silence and threshold settings of capture.
// Timeout and phrase limit always come from each Listen call.
func WithCapture(opt audio.CaptureOptions) Option {
	return func(l *Listener) { l.capture = opt }
}

func WithRecognizeTimeout(d time.Duration) Option {
	return func(l *Listener) { l.recognizeTimeout = d }
}

func New(open Opener, t Transcriber, opts ...Option) *Listener {
	l := &Listener{
		open:             open,
		stt:              t,
		logger:           log.Default(),
		recognizeTimeout: 60 * time.Second,
		poll:             50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listen returns "" with a nil error when nothing usable was said before
// timeout. A transcriber failure is reported as stt.ErrServiceUnavailable
// and a microphone failure as ErrDevice.
func (l *Listener) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	if err := l.waitIdle(ctx); err != nil {
		return "", err
	}

	l.setStatus(StatusListening)
	src, err := l.open()
	if err != nil {
		return "", fmt.Errorf("%w: open: %v", ErrDevice, err)
	}
	if err := src.Start(); err != nil {
		src.Close()
		return "", fmt.Errorf("%w: start: %v", ErrDevice, err)
	}

	opt := l.capture
	opt.Timeout = timeout
	opt.PhraseLimit = phraseLimit
	pcm, err := audio.Capture(ctx, src, opt)
	src.Close()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: capture: %v", ErrDevice, err)
	}
	if len(pcm) == 0 {
		l.logger.Debug("listen timed out")
		return "", nil
	}

	l.setStatus(StatusRecognizing)
	rctx, cancel := context.WithTimeout(ctx, l.recognizeTimeout)
	defer cancel()

	text, err := l.stt.Transcribe(rctx, pcm)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, stt.ErrServiceUnavailable) {
			err = fmt.Errorf("%w: %v", stt.ErrServiceUnavailable, err)
		}
		return "", err
	}

	text = Clean(text)
	if text == "" {
		l.logger.Debug("nothing recognized")
		return "", nil
	}
	l.logger.Info("heard", "text", text)
	if l.view != nil {
		l.view.Log("You", text)
	}
	return text, nil
}

func (l *Listener) waitIdle(ctx context.Context) error {
	if l.busy == nil {
		return nil
	}
	t := time.NewTicker(l.poll)
	defer t.Stop()
	for l.busy.Active() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (l *Listener) setStatus(s string) {
	if l.view != nil {
		l.view.SetStatus(s)
	}
}

var (
	// whisper marks non-speech as [BLANK_AUDIO], (music), *coughs* and so on.
	annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)
	wordRe       = regexp.MustCompile(`[\p{L}\p{N}]`)
)

// Clean strips transcriber annotations and returns "" for text that holds
// no words.
func Clean(text string) string {
	text = annotationRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	if !wordRe.MatchString(text) {
		return ""
	}
	return text
}
