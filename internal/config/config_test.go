package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, "sir", cfg.UserName)
	assert.Equal(t, []string{"terminator"}, cfg.WakeKeywords)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, time.Second, cfg.ReminderTick)
	assert.Equal(t, []string{".desktop"}, cfg.AppExts)
	assert.Contains(t, cfg.AppDirs, "/usr/share/applications")
	assert.Empty(t, cfg.OpenWeatherKey)
	assert.Nil(t, cfg.TelegramContacts)
	assert.NotEmpty(t, cfg.SocketPath)
}

func TestOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := Load(env(map[string]string{
		"TERMINATOR_USER_NAME":     "Sarah",
		"TERMINATOR_WAKE_KEYWORDS": "jarvis, hey computer ,",
		"OPENWEATHER_API_KEY":      " abc ",
		"SMTP_PORT":                "587",
		"TELEGRAM_CONTACTS":        "mom=42",
		"HUB_DEVICES":              "lamp=VERTEX",
		"MUSIC_DIR":                "/srv/music:/home/me/Music",
		"REMINDER_TICK_MS":         "250",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Sarah", cfg.UserName)
	assert.Equal(t, []string{"jarvis", "hey computer"}, cfg.WakeKeywords)
	assert.Equal(t, "abc", cfg.OpenWeatherKey)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, map[string]int64{"mom": 42}, cfg.TelegramContacts)
	assert.Equal(t, map[string]string{"lamp": "VERTEX"}, cfg.HubDevices)
	assert.Equal(t, []string{"/srv/music", "/home/me/Music"}, cfg.MusicDirs)
	assert.Equal(t, 250*time.Millisecond, cfg.ReminderTick)
}

func TestMalformedValues(t *testing.T) {
	t.Parallel()

	for key, val := range map[string]string{
		"SMTP_PORT":         "ssl",
		"REMINDER_TICK_MS":  "0",
		"TELEGRAM_CONTACTS": "mom",
		"HUB_DEVICES":       "lamp",
		"ESPEAK_RATE":       "fast",
	} {
		_, err := Load(env(map[string]string{key: val}))
		assert.ErrorContains(t, err, key)
	}
}
