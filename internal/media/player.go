// Package media plays local audio files through the default output device.
package media

import (
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// OutputRate is the mixer rate; every stream is resampled to it.
const OutputRate = beep.SampleRate(44100)

var (
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrUnsupported    = errors.New("unsupported audio format")
)

// Extensions lists the file types Decode understands, for indexing.
var Extensions = []string{".mp3", ".wav", ".ogg"}

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(OutputRate, OutputRate.N(time.Second/10))
	})
	return speakerErr
}

// Decode opens path and returns a stream already resampled to OutputRate.
// Closing the returned closer releases the file.
func Decode(path string) (beep.Streamer, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".ogg":
		s, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	var out beep.Streamer = s
	if format.SampleRate != OutputRate {
		out = beep.Resample(4, format.SampleRate, OutputRate, s)
	}
	return out, s.Close, nil
}

// Player plays one track at a time and can pause it. It shares the output
// with short clips played through PlayClip.
type Player struct {
	mu      sync.Mutex
	ctrl    *beep.Ctrl
	closer  func() error
	current string
	logger  *log.Logger
}

func NewPlayer(logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Default()
	}
	return &Player{logger: logger}
}

func (p *Player) Play(path string) error {
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	stream, closer, err := Decode(path)
	if err != nil {
		return err
	}

	p.Stop()

	ctrl := &beep.Ctrl{}
	ctrl.Streamer = beep.Seq(stream, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker locked.
		go p.finished(ctrl)
	}))

	p.mu.Lock()
	p.ctrl, p.closer, p.current = ctrl, closer, path
	p.mu.Unlock()

	speaker.Play(ctrl)
	p.logger.Info("playing", "path", path)
	return nil
}

func (p *Player) Pause() error {
	return p.setPaused(true)
}

func (p *Player) Resume() error {
	return p.setPaused(false)
}

func (p *Player) setPaused(paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return ErrNothingPlaying
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

func (p *Player) Stop() error {
	p.mu.Lock()
	ctrl, closer := p.ctrl, p.closer
	p.ctrl, p.closer, p.current = nil, nil, ""
	p.mu.Unlock()

	if ctrl == nil {
		return ErrNothingPlaying
	}
	// A Ctrl without a streamer is dropped by the mixer.
	speaker.Lock()
	ctrl.Streamer = nil
	speaker.Unlock()
	return closer()
}

// Current returns the path of the loaded track, or "".
func (p *Player) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) finished(ctrl *beep.Ctrl) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != ctrl {
		return
	}
	if err := p.closer(); err != nil {
		p.logger.Warn("close track", "err", err)
	}
	p.ctrl, p.closer, p.current = nil, nil, ""
}

// PlayClip plays s to the end, mixed over anything already playing, and
// waits for it at most limit.
func PlayClip(s beep.Streamer, limit time.Duration) error {
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-time.After(limit):
		return errors.New("clip playback timed out")
	}
}

// Tone synthesizes a sine tone at OutputRate with short linear fades.
func Tone(freq float64, d time.Duration, volume float64) beep.Streamer {
	total := OutputRate.N(d)
	fade := OutputRate.N(10 * time.Millisecond)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := 0
		for i := range samples {
			if pos >= total {
				break
			}
			env := 1.0
			if pos < fade {
				env = float64(pos) / float64(fade)
			} else if total-pos < fade {
				env = float64(total-pos) / float64(fade)
			}
			v := volume * env * math.Sin(2*math.Pi*freq*float64(pos)/float64(OutputRate))
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}
		return n, true
	})
}
