package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/courtwatch/internal/rules"
)

// Telegram sends alerts through the Bot API. Nil-safe: a nil *Telegram is
// never configured.
type Telegram struct {
	token       string
	defaultChat string
	endpoint    string
	client      *http.Client
}

// NewTelegram creates a Telegram channel. defaultChat is used when settings
// carry no chat id. Returns nil if token is empty.
func NewTelegram(token, defaultChat string) *Telegram {
	if token == "" {
		return nil
	}
	return &Telegram{
		token:       token,
		defaultChat: defaultChat,
		endpoint:    tgbotapi.APIEndpoint,
		client:      &http.Client{},
	}
}

func (t *Telegram) Name() rules.Channel { return rules.ChannelTelegram }

func (t *Telegram) Configured(settings rules.Settings) bool {
	return t != nil && t.chatID(settings) != ""
}

func (t *Telegram) chatID(settings rules.Settings) string {
	if id := strings.TrimSpace(settings.TelegramChatID); id != "" {
		return id
	}
	return t.defaultChat
}

func (t *Telegram) Send(ctx context.Context, settings rules.Settings, msg Message) error {
	if !t.Configured(settings) {
		return ErrNotConfigured
	}

	// The bot is built per send so each request carries ctx. Building it
	// directly skips the getMe round trip NewBotAPI makes.
	bot := &tgbotapi.BotAPI{
		Token:  t.token,
		Client: ctxClient{ctx: ctx, client: t.client},
		Buffer: 1,
	}
	bot.SetAPIEndpoint(t.endpoint)

	text := renderMarkdownV2(msg)
	chat := t.chatID(settings)
	var cfg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		cfg = tgbotapi.NewMessage(id, text)
	} else {
		cfg = tgbotapi.NewMessageToChannel(chat, text)
	}
	cfg.ParseMode = tgbotapi.ModeMarkdownV2
	cfg.DisableWebPagePreview = true
	cfg.DisableNotification = msg.Severity == rules.SeverityDigest

	if _, err := bot.Send(cfg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return fmt.Errorf("telegram send: %w", &StatusError{Code: apiErr.Code, Body: apiErr.Message})
		}
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func renderMarkdownV2(msg Message) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s) }
	var b strings.Builder
	if msg.Severity == rules.SeverityImportant {
		b.WriteString("❗ ")
	}
	b.WriteString("*" + esc(msg.Title) + "*\n")
	b.WriteString(esc(msg.Body))
	for _, f := range msg.Fields {
		b.WriteString("\n_" + esc(f.Name) + "_: " + esc(f.Value))
	}
	if msg.URL != "" {
		b.WriteString("\n[Details](" + strings.NewReplacer(`\`, `\\`, ")", `\)`).Replace(msg.URL) + ")")
	}
	return b.String()
}

// ctxClient binds a context to every request the bot library makes.
type ctxClient struct {
	ctx    context.Context
	client *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}
