// Package ports declares the collaborators the command core talks to. Every
// call is treated as opaque, possibly slow and possibly failing.
package ports

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured marks a feature whose credentials or backend are
	// missing. It is detected before any external call is made.
	ErrNotConfigured = errors.New("feature not configured")

	// ErrNotFound is returned when a lookup has no result.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when a lookup has several equally good results.
	ErrAmbiguous = errors.New("ambiguous result")
)

// Speaker renders one utterance. Implementations serialise concurrent calls.
type Speaker interface {
	Speak(text string)
}

// Listener captures and transcribes a single utterance. An empty string with a
// nil error means nothing usable was heard before the timeout.
type Listener interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
}

// StatusView shows the assistant status line and a transcript of the session.
type StatusView interface {
	SetStatus(status string)
	Log(sender, message string)
}

// Resources resolves a spoken name to an indexed path.
type Resources interface {
	Lookup(query string) (string, bool)
	Len() int
}

type WeatherReport struct {
	Description string
	TempC       float64
	Humidity    int
}

type Weather interface {
	Current(ctx context.Context, city string) (WeatherReport, error)
}

type News interface {
	Headlines(ctx context.Context, n int) ([]string, error)
}

type Encyclopedia interface {
	Summary(ctx context.Context, topic string) (string, error)
}

// ImageGenerator returns a URL of an image generated for prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Messenger delivers a short text to a named contact.
type Messenger interface {
	Send(ctx context.Context, contact, text string) error
}

type Browser interface {
	Open(url string) error
}

type Launcher interface {
	Launch(path string) error
}

// Processes closes a running program matched by name and reports the name of
// the process it closed.
type Processes interface {
	Close(ctx context.Context, name string) (string, error)
}

type BatteryStatus struct {
	Percent  float64
	Charging bool
}

type SystemInfo struct {
	OS       string
	Platform string
	Version  string
	Arch     string
	Hostname string
}

type SystemStats interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	Battery(ctx context.Context) (BatteryStatus, error)
	Describe(ctx context.Context) (SystemInfo, error)
}

// Desktop wraps OS power and window commands.
type Desktop interface {
	PowerOff(ctx context.Context) error
	Reboot(ctx context.Context) error
	LogOff(ctx context.Context) error
	MinimizeWindow(ctx context.Context) error
	MaximizeWindow(ctx context.Context) error
	CloseWindow(ctx context.Context) error
}

type Clipboard interface {
	Read() (string, error)
}

// Screenshotter captures the screen and returns the saved file path.
type Screenshotter interface {
	Capture() (string, error)
}

// Notes is the append-only note log.
type Notes interface {
	Append(text string) error
}

type Volume interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	ToggleMute(ctx context.Context) (muted bool, err error)
}

type Music interface {
	Play(path string) error
	Pause() error
	Resume() error
	Stop() error
}

// Devices switches smart devices reachable through the hub.
type Devices interface {
	Known(device string) bool
	Switch(ctx context.Context, device string, on bool) error
}

// Reminders schedules a spoken reminder.
type Reminders interface {
	Schedule(fireAt time.Time, message string) error
}
