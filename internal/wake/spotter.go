package wake

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"terminator/internal/audio"
	"terminator/internal/nlu"
)

// Transcriber turns a short voiced segment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

type SpotterOptions struct {
	Keywords []string
	// Threshold is the RMS level that counts as voice.
	Threshold float64
	// Silence closes a segment after this much quiet.
	Silence time.Duration
	// MaxSegment bounds a segment; the activation phrase is short.
	MaxSegment time.Duration
	// MinSegment drops clicks and pops.
	MinSegment time.Duration
	// Timeout bounds one transcription.
	Timeout time.Duration
	Logger  *log.Logger
}

// WhisperSpotter cuts the stream into voiced segments and transcribes each one
// looking for a keyword.
type WhisperSpotter struct {
	stt      Transcriber
	keywords []string
	opt      SpotterOptions

	segment  []int16
	speaking bool
	quiet    time.Duration
}

func NewWhisperSpotter(stt Transcriber, opt SpotterOptions) (*WhisperSpotter, error) {
	if stt == nil {
		return nil, errors.New("nil transcriber")
	}

	var keywords []string
	for _, k := range opt.Keywords {
		if k = nlu.NormalizeName(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return nil, errors.New("no wake keywords")
	}

	if opt.Threshold <= 0 {
		opt.Threshold = 0.02
	}
	if opt.Silence <= 0 {
		opt.Silence = 400 * time.Millisecond
	}
	if opt.MaxSegment <= 0 {
		opt.MaxSegment = 2500 * time.Millisecond
	}
	if opt.MinSegment <= 0 {
		opt.MinSegment = 250 * time.Millisecond
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}

	return &WhisperSpotter{stt: stt, keywords: keywords, opt: opt}, nil
}

func (s *WhisperSpotter) Process(frame []int16) (bool, error) {
	d := time.Duration(audio.FrameDuration(len(frame)) * float64(time.Second))
	loud := audio.RMS(frame) > s.opt.Threshold

	if !s.speaking {
		if !loud {
			return false, nil
		}
		s.speaking = true
	}

	s.segment = append(s.segment, frame...)
	if loud {
		s.quiet = 0
	} else {
		s.quiet += d
	}

	length := time.Duration(audio.FrameDuration(len(s.segment)) * float64(time.Second))
	if s.quiet < s.opt.Silence && length < s.opt.MaxSegment {
		return false, nil
	}

	segment, voiced := s.segment, length-s.quiet
	s.reset()
	if voiced < s.opt.MinSegment {
		return false, nil
	}
	return s.match(segment)
}

func (s *WhisperSpotter) match(segment []int16) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opt.Timeout)
	defer cancel()

	text, err := s.stt.Transcribe(ctx, audio.Float32(segment))
	if err != nil {
		return false, err
	}
	text = nlu.NormalizeName(text)
	s.opt.Logger.Debug("wake segment", "text", text)

	for _, k := range s.keywords {
		if nlu.ContainsPhrase(text, k) {
			return true, nil
		}
	}
	return false, nil
}

func (s *WhisperSpotter) reset() {
	s.segment = nil
	s.speaking = false
	s.quiet = 0
}
