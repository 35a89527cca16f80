package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Desktop drives power and window management through systemd, loginctl,
// xdotool and wmctrl.
type Desktop struct {
	Run Runner
}

func (d Desktop) run(ctx context.Context, name string, args ...string) error {
	run := d.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, name, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}

func (d Desktop) PowerOff(ctx context.Context) error {
	return d.run(ctx, "systemctl", "poweroff")
}

func (d Desktop) Reboot(ctx context.Context) error {
	return d.run(ctx, "systemctl", "reboot")
}

func (d Desktop) LogOff(ctx context.Context) error {
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		return d.run(ctx, "loginctl", "terminate-session", id)
	}
	return d.run(ctx, "loginctl", "terminate-user", os.Getenv("USER"))
}

func (d Desktop) MinimizeWindow(ctx context.Context) error {
	return d.run(ctx, "xdotool", "getactivewindow", "windowminimize")
}

func (d Desktop) MaximizeWindow(ctx context.Context) error {
	return d.run(ctx, "wmctrl", "-r", ":ACTIVE:", "-b", "add,maximized_vert,maximized_horz")
}

func (d Desktop) CloseWindow(ctx context.Context) error {
	return d.run(ctx, "wmctrl", "-c", ":ACTIVE:")
}
