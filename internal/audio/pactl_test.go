package audio

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "terminator"
`

type fakePactl struct {
	mu    sync.Mutex
	calls []string
	out   map[string]string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	return []byte(f.out[args[0]]), nil
}

func TestParseSinkInputs(t *testing.T) {
	t.Parallel()

	got := parseSinkInputs(sinkInputs)
	assert.Equal(t, []sinkInput{
		{ID: 41, Volume: 80, AppName: "Firefox"},
		{ID: 42, Volume: 100, AppName: "terminator"},
	}, got)
}

func TestDuckerSkipsSelfAndRestores(t *testing.T) {
	t.Parallel()

	f := &fakePactl{out: map[string]string{"list": sinkInputs}}
	d := NewDucker([]string{"terminator"}, 10)
	d.run = f.run

	require.NoError(t, d.DuckOthers(context.Background(), 0.5, 0))
	require.NoError(t, d.DuckOthers(context.Background(), 0.5, 0))
	require.NoError(t, d.UnduckOthers(context.Background(), 0))

	assert.Equal(t, []string{
		"list sink-inputs",
		"set-sink-input-volume 41 40%",
		"list sink-inputs",
		"set-sink-input-volume 41 80%",
	}, f.calls)
}

func TestDuckerFadesInSteps(t *testing.T) {
	t.Parallel()

	f := &fakePactl{out: map[string]string{"list": sinkInputs}}
	d := NewDucker([]string{"terminator"}, 0)
	d.run = f.run

	require.NoError(t, d.DuckOthers(context.Background(), 0, 30*time.Millisecond))
	assert.Equal(t, []string{
		"list sink-inputs",
		"set-sink-input-volume 41 53%",
		"set-sink-input-volume 41 27%",
		"set-sink-input-volume 41 0%",
	}, f.calls)
}

func TestVolumeToggleMute(t *testing.T) {
	t.Parallel()

	f := &fakePactl{out: map[string]string{"get-sink-mute": "Mute: yes\n"}}
	v := NewVolume(0)
	v.run = f.run

	muted, err := v.ToggleMute(context.Background())
	require.NoError(t, err)
	assert.True(t, muted)

	require.NoError(t, v.Up(context.Background()))
	assert.Equal(t, "set-sink-volume @DEFAULT_SINK@ +5%", f.calls[len(f.calls)-1])
}
