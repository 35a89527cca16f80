package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestConsoleLogFormat(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 9, 5, 7, 0, time.UTC) }

	c.Log("You", "open chrome")
	assert.Equal(t, "[09:05:07] You: open chrome\n", buf.String())
}

func TestConsoleStatusDeduplicates(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.SetStatus("Idle")
	c.SetStatus("Idle")
	c.SetStatus("Speaking...")

	assert.Equal(t, "Status: Idle\nStatus: Speaking...\n", buf.String())
	assert.Equal(t, "Speaking...", c.Status())
}
