package audio

import (
	"math"
)

const (
	SampleRate  = 16000
	FrameLength = 512 // 32ms at 16 kHz
)

// FrameSource yields fixed-size mono PCM16 frames at SampleRate.
type FrameSource interface {
	Start() error
	ReadFrame() ([]int16, error)
	Close() error
}

// RMS returns the root mean square of a PCM16 frame scaled to [0, 1].
func RMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var s float64
	for _, x := range frame {
		v := float64(x) / 32768.0
		s += v * v
	}
	return math.Sqrt(s / float64(len(frame)))
}

// Float32 converts PCM16 samples to float32 in [-1, 1].
func Float32(frame []int16) []float32 {
	out := make([]float32, len(frame))
	for i, x := range frame {
		out[i] = float32(x) / 32768.0
	}
	return out
}

// Int16 converts float32 samples in [-1, 1] to PCM16, clipping out of range values.
func Int16(pcm []float32) []int16 {
	out := make([]int16, len(pcm))
	for i, x := range pcm {
		v := math.Round(float64(x) * 32767.0)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// FrameDuration is the playback length of one frame.
func FrameDuration(n int) float64 {
	return float64(n) / float64(SampleRate)
}
