package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminator/internal/reminder"
)

type trigger struct{ full bool }

func (t *trigger) Trigger(string) bool { return !t.full }

type speaker struct{ said []string }

func (s *speaker) Speak(text string) { s.said = append(s.said, text) }

func TestServerRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ctl.sock")
	srv, err := Listen(path, func(_ context.Context, msg ControlMessage) Reply {
		if msg.Cmd == "echo" {
			return Reply{OK: true, Lines: msg.Args}
		}
		return Fail("unknown command %q", msg.Cmd)
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()

	reply, err := SendCommand(rctx, path, ControlMessage{Cmd: "echo", Args: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, Reply{OK: true, Lines: []string{"a", "b"}}, reply)

	_, err = SendCommand(rctx, path, ControlMessage{Cmd: "nope"})
	assert.EqualError(t, err, `unknown command "nope"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.NoFileExists(t, path)
}

func TestSendWithoutDaemon(t *testing.T) {
	t.Parallel()

	_, err := SendCommand(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), ControlMessage{Cmd: CmdTrigger})
	assert.Error(t, err)
}

func TestControllerCommands(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	book := reminder.New(&speaker{}, reminder.WithClock(func() time.Time { return now }))
	r, err := book.Add(now.Add(time.Hour), "stretch")
	require.NoError(t, err)

	cmds := make(chan string, 1)
	sp := &speaker{}
	wake := &trigger{}
	c := &Controller{Wake: wake, Commands: cmds, Speaker: sp, Reminders: book, Source: "ipc"}
	ctx := context.Background()

	assert.True(t, c.Handle(ctx, ControlMessage{Cmd: CmdTrigger}).OK)
	wake.full = true
	assert.Equal(t, []string{"wake already pending"}, c.Handle(ctx, ControlMessage{Cmd: CmdTrigger}).Lines)

	assert.True(t, c.Handle(ctx, ControlMessage{Cmd: CmdExec, Args: []string{"what", "time", "is", "it"}}).OK)
	assert.Equal(t, "what time is it", <-cmds)
	cmds <- "occupied"
	assert.Contains(t, c.Handle(ctx, ControlMessage{Cmd: CmdExec, Args: []string{"hi"}}).Error, "busy")
	assert.NotEmpty(t, c.Handle(ctx, ControlMessage{Cmd: CmdExec}).Error)

	assert.True(t, c.Handle(ctx, ControlMessage{Cmd: CmdSay, Args: []string{"hello"}}).OK)
	assert.Equal(t, []string{"hello"}, sp.said)

	list := c.Handle(ctx, ControlMessage{Cmd: CmdReminders})
	require.Len(t, list.Lines, 1)
	assert.Contains(t, list.Lines[0], r.ID.String())
	assert.Contains(t, list.Lines[0], "2026-03-10 16:00:00  stretch")

	assert.NotEmpty(t, c.Handle(ctx, ControlMessage{Cmd: CmdCancelReminder, Args: []string{"not-a-uuid"}}).Error)
	assert.Contains(t, c.Handle(ctx, ControlMessage{Cmd: CmdCancelReminder, Args: []string{uuid.NewString()}}).Error, "no pending reminder")
	assert.True(t, c.Handle(ctx, ControlMessage{Cmd: CmdCancelReminder, Args: []string{r.ID.String()}}).OK)
	assert.Empty(t, book.Pending())

	assert.Contains(t, c.Handle(ctx, ControlMessage{Cmd: "dance"}).Error, "unknown command")
}

func TestControllerWithoutCollaborators(t *testing.T) {
	t.Parallel()

	c := &Controller{}
	ctx := context.Background()
	for _, cmd := range []string{CmdTrigger, CmdReminders, CmdCancelReminder} {
		assert.NotEmpty(t, c.Handle(ctx, ControlMessage{Cmd: cmd}).Error, cmd)
	}
	assert.NotEmpty(t, c.Handle(ctx, ControlMessage{Cmd: CmdExec, Args: []string{"hi"}}).Error)
	assert.NotEmpty(t, c.Handle(ctx, ControlMessage{Cmd: CmdSay, Args: []string{"hi"}}).Error)
}
