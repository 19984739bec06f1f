package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends messages to a chat through the Bot API.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	channel string
}

// TelegramConfig configures a Telegram notifier.
type TelegramConfig struct {
	Token string
	// ChatID is a numeric chat id or an @channel username.
	ChatID string
	// APIEndpoint is a format string taking the token and method; empty uses the public API.
	APIEndpoint string
	HTTPClient  *http.Client
}

// NewTelegram returns a notifier for the configured chat. No request is made
// until the first message, so a Bot API outage at startup is not fatal.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	bot := &tgbotapi.BotAPI{Token: cfg.Token, Client: client, Buffer: 100}
	bot.SetAPIEndpoint(endpoint)

	t := &Telegram{bot: bot}
	if strings.HasPrefix(cfg.ChatID, "@") {
		t.channel = cfg.ChatID
		return t, nil
	}
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}
	t.chatID = chatID
	return t, nil
}

// Name returns "telegram"
func (t *Telegram) Name() string { return "telegram" }

// Notify sends text to the configured chat.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if t.channel != "" {
		msg = tgbotapi.NewMessageToChannel(t.channel, text)
	} else {
		msg = tgbotapi.NewMessage(t.chatID, text)
	}

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", withoutURL(err))
	}
	return nil
}

// Verify checks the token with getMe.
func (t *Telegram) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	self, err := t.bot.GetMe()
	if err != nil {
		return fmt.Errorf("telegram token check failed: %w", withoutURL(err))
	}
	t.bot.Self = self
	return nil
}

// withoutURL drops the request URL from transport errors: the Bot API puts
// the token in the path.
func withoutURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request: %w", uerr.Op, uerr.Err)
	}
	return err
}
