package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/logger"
	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
)

// TelegramOptions configures the Telegram sink.
type TelegramOptions struct {
	Token         string
	ChatID        int64
	RatePerSecond int
	Attempts      int
	RetryDelay    time.Duration
	// ServerURL overrides the Bot API endpoint.
	ServerURL string
}

// Telegram forwards notifications to a Telegram chat.
type Telegram struct {
	bot     *bot.Bot
	chatID  int64
	limiter *rate.Limiter
	opts    TelegramOptions
	log     logger.Logger
}

func NewTelegram(opts TelegramOptions, log logger.Logger) (*Telegram, error) {
	errFactory := errors.New()

	if opts.Token == "" || opts.ChatID == 0 {
		return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "telegram sink requires token and chat_id")
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if log == nil {
		log = logger.Named("telegram")
	}

	botOpts := []bot.Option{bot.WithSkipGetMe()}
	if opts.ServerURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(opts.ServerURL))
	}
	b, err := bot.New(opts.Token, botOpts...)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	return &Telegram{
		bot:     b,
		chatID:  opts.ChatID,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.RatePerSecond),
		opts:    opts,
		log:     log,
	}, nil
}

// Send waits for the rate limiter and posts the message, retrying on
// failure.
func (t *Telegram) Send(ctx context.Context, n Notification) error {
	errFactory := errors.New()

	if err := t.limiter.Wait(ctx); err != nil {
		return errFactory.Wrap(errors.ErrSendNotification, err)
	}

	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   telegramText(n),
	}

	var lastErr error
	for attempt := 1; attempt <= t.opts.Attempts; attempt++ {
		if _, lastErr = t.bot.SendMessage(ctx, params); lastErr == nil {
			return nil
		}
		t.log.Warn().Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", t.opts.Attempts).
			Msg("Telegram send failed")

		if attempt == t.opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return errFactory.Wrap(errors.ErrSendNotification, ctx.Err())
		case <-time.After(t.opts.RetryDelay):
		}
	}

	return errFactory.Wrap(errors.ErrSendNotification, fmt.Errorf("failed after %d attempts: %w", t.opts.Attempts, lastErr))
}

func telegramText(n Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n%s\n", n.Severity, n.Title, n.Message)
	for _, d := range n.Details {
		fmt.Fprintf(&b, "- %s: %.1f°C, vibration %.3f (%s)\n", d.PartName, d.Temperature, d.Vibration, d.DangerLevel)
	}
	fmt.Fprintf(&b, "Action: %s", n.ActionRequired)
	return b.String()
}
