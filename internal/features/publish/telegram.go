package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"readme-image/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("telegram bot token and chat id are required")

// Options configures the Telegram publisher.
type Options struct {
	// Endpoint is the Bot API URL template, tgbotapi.APIEndpoint when empty.
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Telegram sends finished images to one chat or channel.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	channel string
}

// NewTelegram authenticates the bot (getMe) and resolves chatID.
// chatID is either a numeric id or an @channel username.
func NewTelegram(token, chatID string, opts Options) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, ErrNotConfigured
	}
	if opts.Endpoint == "" {
		opts.Endpoint = tgbotapi.APIEndpoint
	}
	if opts.HTTPClient == nil {
		if opts.Timeout <= 0 {
			opts.Timeout = 60 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	t := &Telegram{}
	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "@") {
		t.channel = chatID
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
		}
		t.chatID = id
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, opts.Endpoint, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	t.bot = bot

	log.LogInfo("Telegram bot authorized", zap.String("bot", bot.Self.UserName))
	return t, nil
}

// SendImage uploads path as a photo with an optional caption.
func (t *Telegram) SendImage(ctx context.Context, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("image to publish is missing: %w", err)
	}

	var photo tgbotapi.PhotoConfig
	if t.channel != "" {
		photo = tgbotapi.NewPhotoToChannel(t.channel, tgbotapi.FilePath(path))
	} else {
		photo = tgbotapi.NewPhoto(t.chatID, tgbotapi.FilePath(path))
	}
	photo.Caption = caption

	start := time.Now()
	msg, err := t.bot.Send(photo)
	if err != nil {
		return fmt.Errorf("failed to send image to telegram: %w", err)
	}

	log.LogSuccess("Image sent to Telegram",
		zap.String("file", path),
		zap.Int("message_id", msg.MessageID),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}
