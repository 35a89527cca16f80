package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Init must be called once before any Mic is opened.
func Init() error {
	return portaudio.Initialize()
}

func Terminate() {
	portaudio.Terminate()
}

// Mic reads frames from the default input device.
type Mic struct {
	mu     sync.Mutex
	buf    []int16
	stream *portaudio.Stream
	closed bool
}

func NewMic() *Mic {
	return &Mic{buf: make([]int16, FrameLength)}
}

func (m *Mic) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("mic closed")
	}
	if m.stream != nil {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(m.buf), m.buf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	m.stream = stream
	return nil
}

// ReadFrame blocks until one frame is captured. The returned slice is a copy.
func (m *Mic) ReadFrame() ([]int16, error) {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()

	if stream == nil {
		return nil, errors.New("mic not started")
	}

	if err := stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			// The frame is still usable; the backlog was dropped.
			return append([]int16(nil), m.buf...), nil
		}
		return nil, err
	}
	return append([]int16(nil), m.buf...), nil
}

func (m *Mic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	if m.stream == nil {
		return nil
	}
	m.stream.Stop()
	return m.stream.Close()
}

// CaptureOptions bounds one utterance capture.
type CaptureOptions struct {
	// Timeout is how long to wait for speech to start.
	Timeout time.Duration
	// PhraseLimit caps the length of the utterance once speech started.
	PhraseLimit time.Duration
	// Silence ends the utterance after this much quiet.
	Silence time.Duration
	// Threshold is the RMS level that counts as speech.
	Threshold float64
}

func (o *CaptureOptions) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 6 * time.Second
	}
	if o.PhraseLimit <= 0 {
		o.PhraseLimit = 8 * time.Second
	}
	if o.Silence <= 0 {
		o.Silence = 600 * time.Millisecond
	}
	if o.Threshold <= 0 {
		o.Threshold = 0.015
	}
}

// Capture records one utterance from src. It waits up to Timeout for the
// level to cross Threshold and then records until Silence or PhraseLimit.
// It returns nil samples if no speech started in time.
func Capture(ctx context.Context, src FrameSource, opt CaptureOptions) ([]float32, error) {
	opt.defaults()

	var (
		out      []float32
		speaking bool
		waited   time.Duration
		spoken   time.Duration
		quiet    time.Duration
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		frame, err := src.ReadFrame()
		if err != nil {
			return nil, err
		}
		d := time.Duration(FrameDuration(len(frame)) * float64(time.Second))

		loud := RMS(frame) > opt.Threshold
		if !speaking {
			if !loud {
				waited += d
				if waited >= opt.Timeout {
					return nil, nil
				}
				continue
			}
			speaking = true
		}

		out = append(out, Float32(frame)...)
		spoken += d

		if loud {
			quiet = 0
		} else {
			quiet += d
		}
		if quiet >= opt.Silence || spoken >= opt.PhraseLimit {
			return out, nil
		}
	}
}
