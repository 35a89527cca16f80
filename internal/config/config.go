// Package config reads the assistant settings from the environment. A .env
// file, if any, is loaded into the environment by the caller first.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"terminator/internal/actions"
	"terminator/internal/ipc"
)

type Config struct {
	UserName     string
	WakeKeywords []string
	Language     string

	OpenWeatherKey string
	DefaultCity    string
	NewsKey        string
	NewsCountry    string
	OpenAIKey      string

	Mail actions.MailConfig

	TelegramToken    string
	TelegramContacts map[string]int64

	HubURL     string
	HubShard   string
	HubDevices map[string]string

	AppDirs       []string
	AppExts       []string
	MusicDirs     []string
	NotesFile     string
	ScreenshotDir string
	ChimeFile     string

	ReminderTick time.Duration
	EspeakVoice  string
	EspeakRate   int
	VolumeStep   int

	SocketPath string
}

// Load builds a Config from getenv. Missing credentials are not an error:
// the feature that needs them reports itself as not configured when used.
// Malformed values are.
func Load(getenv func(string) string) (Config, error) {
	home, _ := os.UserHomeDir()
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		UserName:     get("TERMINATOR_USER_NAME", "sir"),
		WakeKeywords: list(get("TERMINATOR_WAKE_KEYWORDS", "terminator"), ","),
		Language:     get("TERMINATOR_LANGUAGE", "en"),

		OpenWeatherKey: get("OPENWEATHER_API_KEY", ""),
		DefaultCity:    get("TERMINATOR_CITY", ""),
		NewsKey:        get("NEWS_API_KEY", ""),
		NewsCountry:    get("NEWS_COUNTRY", "us"),
		OpenAIKey:      get("OPENAI_API_KEY", ""),

		Mail: actions.MailConfig{
			Host:     get("SMTP_HOST", "smtp.gmail.com"),
			Address:  get("EMAIL_ADDRESS", ""),
			Password: get("EMAIL_APP_PASSWORD", ""),
		},

		TelegramToken: get("TELEGRAM_BOT_TOKEN", ""),

		HubURL:   get("HUB_URL", ""),
		HubShard: get("HUB_SHARD", "TERMINATOR"),

		AppDirs: list(get("APP_DIRS", strings.Join([]string{
			"/usr/share/applications",
			"/usr/local/share/applications",
			filepath.Join(home, ".local/share/applications"),
			"/var/lib/flatpak/exports/share/applications",
		}, string(os.PathListSeparator))), string(os.PathListSeparator)),
		AppExts:       []string{".desktop"},
		MusicDirs:     list(get("MUSIC_DIR", filepath.Join(home, "Music")), string(os.PathListSeparator)),
		NotesFile:     get("NOTES_FILE", filepath.Join(home, "terminator_notes.txt")),
		ScreenshotDir: get("SCREENSHOT_DIR", filepath.Join(home, "Pictures")),
		ChimeFile:     get("CHIME_FILE", ""),

		EspeakVoice: get("ESPEAK_VOICE", "en"),
		SocketPath:  get("TERMINATOR_SOCKET", ipc.DefaultSocketPath()),
	}

	if len(cfg.WakeKeywords) == 0 {
		cfg.WakeKeywords = []string{"terminator"}
	}

	var err error
	if cfg.Mail.Port, err = intVar(get, "SMTP_PORT", 465); err != nil {
		return Config{}, err
	}
	if cfg.EspeakRate, err = intVar(get, "ESPEAK_RATE", 175); err != nil {
		return Config{}, err
	}
	if cfg.VolumeStep, err = intVar(get, "VOLUME_STEP", 10); err != nil {
		return Config{}, err
	}
	tick, err := intVar(get, "REMINDER_TICK_MS", 1000)
	if err != nil {
		return Config{}, err
	}
	if tick <= 0 {
		return Config{}, fmt.Errorf("REMINDER_TICK_MS: must be positive, got %d", tick)
	}
	cfg.ReminderTick = time.Duration(tick) * time.Millisecond

	if v := get("TELEGRAM_CONTACTS", ""); v != "" {
		if cfg.TelegramContacts, err = actions.ParseContacts(v); err != nil {
			return Config{}, fmt.Errorf("TELEGRAM_CONTACTS: %w", err)
		}
	}
	if v := get("HUB_DEVICES", ""); v != "" {
		if cfg.HubDevices, err = actions.ParseDevices(v); err != nil {
			return Config{}, fmt.Errorf("HUB_DEVICES: %w", err)
		}
	}

	return cfg, nil
}

func intVar(get func(key, def string) string, key string, def int) (int, error) {
	v := get(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func list(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
