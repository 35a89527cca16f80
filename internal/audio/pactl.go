package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	percentRe = regexp.MustCompile(`(\d+)\s*%`)
	muteRe    = regexp.MustCompile(`Mute:\s*(yes|no)`)
)

const maxVolume = 150

// Runner executes a pactl invocation and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func pactl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "pactl", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("pactl %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

// Ducker fades every playback stream except the assistant's own down while
// it speaks and restores the original levels afterwards.
type Ducker struct {
	mu        sync.Mutex
	run       Runner
	active    bool
	selfNames []string
	original  map[int]int
	minVolume int
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	return &Ducker{
		run:       pactl,
		selfNames: append([]string(nil), selfNames...),
		original:  make(map[int]int),
		minVolume: clampVolume(minVolume),
	}
}

// DuckOthers scales other streams to factor of their level, never below the
// configured minimum.
func (d *Ducker) DuckOthers(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	inputs, err := d.listInputs(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var fades []fade
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}
		to := int(math.Round(float64(in.Volume) * factor))
		if to < d.minVolume {
			to = d.minVolume
		}
		d.original[in.ID] = in.Volume
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: clampVolume(to)})
	}

	d.active = true
	return d.apply(ctx, fades, duration)
}

// UnduckOthers fades ducked streams back. Streams that appeared after the
// duck are left alone.
func (d *Ducker) UnduckOthers(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}
	d.active = false

	inputs, err := d.listInputs(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, in := range inputs {
		orig, ok := d.original[in.ID]
		if !ok || d.isSelf(in) {
			continue
		}
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: orig})
	}
	d.original = make(map[int]int)

	return d.apply(ctx, fades, duration)
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.selfNames {
		if in.AppName == name {
			return true
		}
	}
	return false
}

type fade struct {
	id, from, to int
}

func (d *Ducker) apply(ctx context.Context, fades []fade, duration time.Duration) error {
	if len(fades) == 0 {
		return nil
	}

	const step = 10 * time.Millisecond
	steps := int(duration / step)
	if steps < 1 {
		steps = 1
	}

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := f.from + int(math.Round(float64(f.to-f.from)*frac))
			if _, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(f.id), fmt.Sprintf("%d%%", clampVolume(v))); err != nil {
				return err
			}
		}
		if i < steps {
			time.Sleep(duration / time.Duration(steps))
		}
	}
	return nil
}

func (d *Ducker) listInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, err
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	var res []sinkInput

	for _, block := range blocks[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "Volume:") && in.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && in.AppName == "":
				in.AppName = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "application.name =")), `"`)
			}
		}
		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}
	return res
}

// Volume controls the default output sink.
type Volume struct {
	run  Runner
	step int
}

func NewVolume(stepPercent int) *Volume {
	if stepPercent <= 0 {
		stepPercent = 5
	}
	return &Volume{run: pactl, step: stepPercent}
}

func (v *Volume) Up(ctx context.Context) error {
	_, err := v.run(ctx, "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("+%d%%", v.step))
	return err
}

func (v *Volume) Down(ctx context.Context) error {
	_, err := v.run(ctx, "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("-%d%%", v.step))
	return err
}

// ToggleMute flips the default sink mute state and returns the new state.
func (v *Volume) ToggleMute(ctx context.Context) (bool, error) {
	if _, err := v.run(ctx, "set-sink-mute", "@DEFAULT_SINK@", "toggle"); err != nil {
		return false, err
	}
	out, err := v.run(ctx, "get-sink-mute", "@DEFAULT_SINK@")
	if err != nil {
		return false, err
	}
	m := muteRe.FindStringSubmatch(string(out))
	if m == nil {
		return false, fmt.Errorf("unexpected pactl output %q", strings.TrimSpace(string(out)))
	}
	return m[1] == "yes", nil
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxVolume {
		return maxVolume
	}
	return v
}
