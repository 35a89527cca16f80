package ipc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"terminator/internal/ports"
	"terminator/internal/reminder"
)

type Trigger interface {
	Trigger(source string) bool
}

type ReminderBook interface {
	Pending() []reminder.Reminder
	Cancel(id uuid.UUID) bool
}

// Controller answers control messages on behalf of the running assistant.
// Any nil collaborator makes its commands fail.
type Controller struct {
	Wake      Trigger
	Commands  chan<- string
	Speaker   ports.Speaker
	Reminders ReminderBook
	// Source tags wake events raised from the socket.
	Source string
}

func (c *Controller) Handle(_ context.Context, msg ControlMessage) Reply {
	switch msg.Cmd {
	case CmdTrigger:
		if c.Wake == nil {
			return Fail("wake-word monitor is not running")
		}
		if !c.Wake.Trigger(c.Source) {
			return Reply{OK: true, Lines: []string{"wake already pending"}}
		}
		return Reply{OK: true}

	case CmdExec:
		text := strings.TrimSpace(strings.Join(msg.Args, " "))
		if text == "" {
			return Fail("exec: empty command")
		}
		if c.Commands == nil {
			return Fail("exec: typed commands are disabled")
		}
		select {
		case c.Commands <- text:
			return Reply{OK: true}
		default:
			return Fail("exec: assistant is busy, try again")
		}

	case CmdSay:
		text := strings.TrimSpace(strings.Join(msg.Args, " "))
		if text == "" {
			return Fail("say: empty text")
		}
		if c.Speaker == nil {
			return Fail("say: no speaker")
		}
		c.Speaker.Speak(text)
		return Reply{OK: true}

	case CmdReminders:
		if c.Reminders == nil {
			return Fail("reminders are not running")
		}
		pending := c.Reminders.Pending()
		lines := make([]string, 0, len(pending))
		for _, r := range pending {
			lines = append(lines, fmt.Sprintf("%s  %s  %s", r.ID, r.FireAt.Format(time.DateTime), r.Message))
		}
		return Reply{OK: true, Lines: lines}

	case CmdCancelReminder:
		if c.Reminders == nil {
			return Fail("reminders are not running")
		}
		if len(msg.Args) != 1 {
			return Fail("cancel-reminder: want one reminder id")
		}
		id, err := uuid.Parse(msg.Args[0])
		if err != nil {
			return Fail("cancel-reminder: %v", err)
		}
		if !c.Reminders.Cancel(id) {
			return Fail("no pending reminder %s", id)
		}
		return Reply{OK: true}

	default:
		return Fail("unknown command %q", msg.Cmd)
	}
}
