package audio

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(d time.Duration, amp float64) []int16 {
	n := int(d.Seconds() * SampleRate)
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * 32767 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	return out
}

func silence(d time.Duration) []int16 {
	return make([]int16, int(d.Seconds()*SampleRate))
}

func concat(parts ...[]int16) []int16 {
	var out []int16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestCaptureRecordsUntilSilence(t *testing.T) {
	t.Parallel()

	samples := concat(silence(300*time.Millisecond), tone(time.Second, 0.5), silence(2*time.Second))
	src := NewSampleSource(samples, Unpaced())
	require.NoError(t, src.Start())

	pcm, err := Capture(context.Background(), src, CaptureOptions{Timeout: time.Second, Silence: 300 * time.Millisecond})
	require.NoError(t, err)

	got := time.Duration(float64(len(pcm)) / SampleRate * float64(time.Second))
	assert.InDelta(t, 1300*time.Millisecond, got, float64(100*time.Millisecond))
}

func TestCaptureTimesOutWithoutSpeech(t *testing.T) {
	t.Parallel()

	src := NewSampleSource(silence(3*time.Second), Unpaced())
	require.NoError(t, src.Start())

	pcm, err := Capture(context.Background(), src, CaptureOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.Nil(t, pcm)
}

func TestCaptureHonoursPhraseLimit(t *testing.T) {
	t.Parallel()

	src := NewSampleSource(tone(5*time.Second, 0.5), Unpaced())
	require.NoError(t, src.Start())

	pcm, err := Capture(context.Background(), src, CaptureOptions{PhraseLimit: time.Second})
	require.NoError(t, err)
	assert.InDelta(t, SampleRate, len(pcm), FrameLength)
}

func TestCapturePropagatesReadErrors(t *testing.T) {
	t.Parallel()

	src := NewSampleSource(silence(100*time.Millisecond), Unpaced())
	require.NoError(t, src.Start())

	_, err := Capture(context.Background(), src, CaptureOptions{Timeout: time.Minute})
	assert.ErrorIs(t, err, io.EOF)
}

func TestSampleSourceLoops(t *testing.T) {
	t.Parallel()

	src := NewSampleSource(silence(10*time.Millisecond), Unpaced(), Loop())
	require.NoError(t, src.Start())

	for i := 0; i < 5; i++ {
		frame, err := src.ReadFrame()
		require.NoError(t, err)
		assert.Len(t, frame, FrameLength)
	}
	require.NoError(t, src.Close())
	_, err := src.ReadFrame()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestInt16RoundTripClips(t *testing.T) {
	t.Parallel()

	out := Int16([]float32{0, 1.5, -1.5, 0.5})
	assert.Equal(t, []int16{0, 32767, -32768, 16384}, out)
	assert.InDelta(t, 0.0, RMS(silence(10*time.Millisecond)), 1e-9)
}
