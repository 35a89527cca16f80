package actions

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"terminator/internal/nlu"
	"terminator/internal/ports"
)

// Telegram sends messages to contacts known by name. The bot is created on
// first use so a bad token only disables messaging.
type Telegram struct {
	token    string
	endpoint string
	client   *http.Client
	contacts map[string]int64

	once   sync.Once
	bot    *tgbotapi.BotAPI
	botErr error
}

// NewTelegram returns nil without a token; a nil *Telegram reports
// ports.ErrNotConfigured.
func NewTelegram(token string, contacts map[string]int64, client *http.Client) *Telegram {
	if token == "" {
		return nil
	}
	if client == nil {
		client = DefaultHTTPClient
	}
	normalized := make(map[string]int64, len(contacts))
	for name, id := range contacts {
		normalized[nlu.NormalizeName(name)] = id
	}
	return &Telegram{token: token, endpoint: tgbotapi.APIEndpoint, client: client, contacts: normalized}
}

// ParseContacts reads "name=chatid,name=chatid".
func ParseContacts(s string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, id, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("contact %q: want name=chatid", pair)
		}
		chat, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("contact %q: %w", pair, err)
		}
		out[strings.TrimSpace(name)] = chat
	}
	return out, nil
}

func (t *Telegram) Send(ctx context.Context, contact, text string) error {
	if t == nil {
		return ports.ErrNotConfigured
	}
	chat, ok := t.contacts[nlu.NormalizeName(contact)]
	if !ok {
		return fmt.Errorf("contact %q: %w", contact, ports.ErrNotFound)
	}

	bot, err := t.api()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := bot.Send(tgbotapi.NewMessage(chat, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) api() (*tgbotapi.BotAPI, error) {
	t.once.Do(func() {
		t.bot, t.botErr = tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
		if t.botErr != nil {
			t.botErr = fmt.Errorf("telegram bot: %w", t.botErr)
		}
	})
	return t.bot, t.botErr
}
