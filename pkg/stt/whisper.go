package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// ErrServiceUnavailable wraps every failure of the model itself, as opposed
// to an utterance that simply contained no speech.
var ErrServiceUnavailable = errors.New("speech service unavailable")

type Options struct {
	Language      string // "auto", "en", ...
	Threads       int    // <=0 => NumCPU()
	InitialPrompt string // biases decoding towards expected words
	MaxTokens     uint   // 0 = no limit
	SplitOnWord   bool
}

type Transcriber struct {
	mu    sync.Mutex
	model whisper.Model
	opt   Options
}

func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: empty model path", ErrServiceUnavailable)
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load model: %v", ErrServiceUnavailable, err)
	}
	return &Transcriber{model: m, opt: opt}, nil
}

func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// Transcribe returns the recognized text of pcm16k, which must be mono
// 16 kHz float32 in [-1, 1]. Calls are serialized: contexts created from one
// model share its state.
func (t *Transcriber) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	if len(pcm16k) == 0 {
		return "", nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return "", fmt.Errorf("%w: model closed", ErrServiceUnavailable)
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: new context: %v", ErrServiceUnavailable, err)
	}
	if err := t.configure(wctx); err != nil {
		return "", err
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: process: %v", ErrServiceUnavailable, err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: next segment: %v", ErrServiceUnavailable, err)
		}
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (t *Transcriber) configure(wctx whisper.Context) error {
	lang := t.opt.Language
	if lang == "" {
		lang = "en"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return fmt.Errorf("%w: set language: %v", ErrServiceUnavailable, err)
	}
	wctx.SetTranslate(false)

	threads := t.opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if t.opt.SplitOnWord {
		wctx.SetSplitOnWord(true)
	}
	if t.opt.MaxTokens > 0 {
		wctx.SetMaxTokensPerSegment(t.opt.MaxTokens)
	}
	if t.opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(t.opt.InitialPrompt)
	}
	return nil
}
