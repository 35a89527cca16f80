package actions

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/kbinani/screenshot"
)

// Screenshots captures every active display into one PNG under Dir.
type Screenshots struct {
	Dir string
	Now func() time.Time
}

func (s Screenshots) Capture() (string, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return "", errors.New("no active display")
	}

	var bounds image.Rectangle
	for i := 0; i < n; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}

	path, err := s.path()
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	return path, f.Close()
}

func (s Screenshots) path() (string, error) {
	dir := s.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Pictures")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return filepath.Join(dir, "screenshot_"+now().Format("20060102_150405")+".png"), nil
}
