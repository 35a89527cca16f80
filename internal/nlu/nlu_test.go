package nlu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "open google chrome", Normalize("  Open   Google Chrome. "))
	assert.Equal(t, "exit", Normalize("Exit!"))
	assert.Equal(t, "what's the news", Normalize("What's the news?"))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "google chrome", NormalizeName("Google-Chrome"))
	assert.Equal(t, "visual studio code", NormalizeName("Visual  Studio_Code"))
	assert.Equal(t, "", NormalizeName("..."))
}

func TestHasLemma(t *testing.T) {
	t.Parallel()

	assert.True(t, HasLemma("please remind me to stretch", "remind"))
	assert.True(t, HasLemma("reminding you", "remind"))
	assert.True(t, HasLemma("minimized window", "minimize"))
	assert.True(t, HasLemma("closing chrome", "close"))
	assert.False(t, HasLemma("what time is it", "remind", "close"))
}

func TestHasTokenIgnoresSubwords(t *testing.T) {
	t.Parallel()

	assert.True(t, HasToken("how much ram is used", "ram"))
	assert.False(t, HasToken("open the program", "ram"))
	assert.False(t, HasToken("update my system", "date"))
}

func TestContainsPhrase(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsPhrase("Hey Terminator, wake up", "terminator"))
	assert.True(t, ContainsPhrase("ok hey jarvis", "hey jarvis"))
	assert.False(t, ContainsPhrase("terminators", "terminator"))
	assert.False(t, ContainsPhrase("anything", ""))
}

func TestParseTimeRelative(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	at, expr, ok := ParseTime("remind me to stretch in 10 minutes", now)
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(10*time.Minute), at, time.Second)
	assert.Contains(t, expr, "10 minutes")
}

func TestParseTimePrefersFuture(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	at, _, ok := ParseTime("remind me at 7 am to run", now)
	require.True(t, ok)
	assert.True(t, at.After(now))
	assert.Equal(t, 7, at.Hour())
}

func TestParseTimeKeepsNamedPastDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	at, expr, ok := ParseTime("remind me yesterday at 5 pm to run", now)
	require.True(t, ok)
	assert.Contains(t, expr, "yesterday")
	assert.True(t, at.Before(now))
}

func TestParseTimeMissing(t *testing.T) {
	t.Parallel()

	_, _, ok := ParseTime("remind me to stretch", time.Now())
	assert.False(t, ok)
}

func TestReminderMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "stretch", ReminderMessage("remind me to stretch in 10 minutes", "in 10 minutes"))
	assert.Equal(t, "call mom", ReminderMessage("set a reminder to call mom at 5 pm", "at 5 pm"))
	assert.Equal(t, "remind me in 5 minutes", ReminderMessage("remind me in 5 minutes", "in 5 minutes"))
}
