// Package notify gives short non-verbal feedback: an acknowledgment chime and
// desktop notifications.
package notify

import (
	"context"
	log "log/slog"
	"os/exec"
	"time"

	"github.com/faiface/beep"

	"terminator/internal/media"
)

// Chime plays the acknowledgment sound. With no file configured, or when the
// file cannot be decoded, it plays a synthesized two-note chime.
type Chime struct {
	Path   string
	logger *log.Logger
}

func NewChime(path string, logger *log.Logger) *Chime {
	if logger == nil {
		logger = log.Default()
	}
	return &Chime{Path: path, logger: logger}
}

// Play blocks until the chime finished. Failures are logged.
func (c *Chime) Play() {
	stream, closer := c.stream()
	if closer != nil {
		defer closer()
	}
	if err := media.PlayClip(stream, 3*time.Second); err != nil {
		c.logger.Warn("chime failed", "err", err)
	}
}

func (c *Chime) stream() (beep.Streamer, func() error) {
	if c.Path != "" {
		s, closer, err := media.Decode(c.Path)
		if err == nil {
			return s, closer
		}
		c.logger.Warn("chime file unusable, using tone", "path", c.Path, "err", err)
	}
	return beep.Seq(
		media.Tone(880, 90*time.Millisecond, 0.3),
		media.Tone(1320, 120*time.Millisecond, 0.3),
	), nil
}

// Desktop posts a notification through notify-send when it is installed.
func Desktop(ctx context.Context, title, body string) {
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		log.Debug("notify-send not available")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(ctx, bin, "-a", "terminator", "-t", "3000", title, body).CombinedOutput(); err != nil {
		log.Debug("notify-send failed", "err", err, "out", string(out))
	}
}
