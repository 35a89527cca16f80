package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"terminator/pkg/audioconv"
)

// FileSource replays a decoded audio file as if it came from a microphone,
// paced in real time. It is used to drive the wake-word monitor without a
// capture device.
type FileSource struct {
	path string
	loop bool
	pace bool

	mu      sync.Mutex
	samples []int16
	pos     int
	next    time.Time
	closed  bool
}

type FileOption func(*FileSource)

// Loop restarts the file from the beginning instead of returning io.EOF.
func Loop() FileOption {
	return func(f *FileSource) { f.loop = true }
}

// Unpaced returns frames as fast as they are read.
func Unpaced() FileOption {
	return func(f *FileSource) { f.pace = false }
}

func NewFileSource(path string, opts ...FileOption) *FileSource {
	f := &FileSource{path: path, pace: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewSampleSource replays samples already in memory.
func NewSampleSource(samples []int16, opts ...FileOption) *FileSource {
	f := NewFileSource("", opts...)
	f.samples = samples
	return f
}

func (f *FileSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New("file source closed")
	}
	if f.samples == nil {
		pcm, err := audioconv.DecodeFile(context.Background(), f.path, audioconv.Options{SampleRate: SampleRate})
		if err != nil {
			return fmt.Errorf("decode %s: %w", f.path, err)
		}
		f.samples = Int16(pcm)
	}
	if len(f.samples) == 0 {
		return errors.New("file source has no audio")
	}
	f.next = time.Now()
	return nil
}

func (f *FileSource) ReadFrame() ([]int16, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, io.ErrClosedPipe
	}
	if f.pos >= len(f.samples) {
		if !f.loop {
			f.mu.Unlock()
			return nil, io.EOF
		}
		f.pos = 0
	}

	end := f.pos + FrameLength
	frame := make([]int16, FrameLength)
	if end > len(f.samples) {
		copy(frame, f.samples[f.pos:])
		end = len(f.samples)
	} else {
		copy(frame, f.samples[f.pos:end])
	}
	f.pos = end

	wait := time.Until(f.next)
	f.next = f.next.Add(time.Duration(FrameDuration(FrameLength) * float64(time.Second)))
	pace := f.pace
	f.mu.Unlock()

	if pace && wait > 0 {
		time.Sleep(wait)
	}
	return frame, nil
}

func (f *FileSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
