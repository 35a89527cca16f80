// Package ui is the terminal stand-in for a desktop window: a status line and
// a running transcript of what was heard and said.
package ui

import (
	"fmt"
	"io"
	log "log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Console struct {
	mu     sync.Mutex
	out    io.Writer
	status string
	now    func() time.Time

	senders map[string]*color.Color
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		out:    out,
		status: "Initializing...",
		now:    time.Now,
		senders: map[string]*color.Color{
			"You":      color.New(color.FgGreen, color.Bold),
			"SYSTEM":   color.New(color.FgCyan),
			"ERROR":    color.New(color.FgRed, color.Bold),
			"REMINDER": color.New(color.FgYellow, color.Bold),
		},
	}
}

// SetStatus updates the status line. Repeated identical statuses are not
// printed again.
func (c *Console) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status == c.status {
		return
	}
	c.status = status
	log.Debug("Status changed", "status", status)
	fmt.Fprintln(c.out, color.New(color.FgHiBlack).Sprintf("Status: %s", status))
}

func (c *Console) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Log appends "[HH:MM:SS] SENDER: message" to the transcript.
func (c *Console) Log(sender, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.senders[sender]
	if !ok {
		col = color.New(color.FgMagenta)
	}
	fmt.Fprintf(c.out, "[%s] %s: %s\n", c.now().Format("15:04:05"), col.Sprint(sender), message)
}
