package actions

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Launcher starts an indexed application without waiting for it.
type Launcher struct {
	// Start is replaced in tests.
	Start func(name string, args ...string) error
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func (l Launcher) Launch(path string) error {
	start := l.Start
	if start == nil {
		start = startDetached
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".desktop":
		err = start("gio", "launch", path)
	case "":
		err = start(path)
	default:
		err = start("xdg-open", path)
	}
	if err != nil {
		return fmt.Errorf("launch %s: %w", filepath.Base(path), err)
	}
	return nil
}
