package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// Sender is the subset of *bot.Bot used by the notifier.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Config holds the bot credentials and delivery limits.
type Config struct {
	BotToken       string
	ChatID         int64
	RatePerMinute  int
	RequestTimeout time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
}

// Notifier delivers critical announcements to a Telegram chat.
type Notifier struct {
	sender      Sender
	chatID      int64
	limiter     *rate.Limiter
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *logger.Logger
}

// NewNotifier creates a bot client without calling getMe at startup.
func NewNotifier(cfg Config, log *logger.Logger) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}

	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	return NewNotifierWithSender(b, cfg, log), nil
}

// NewNotifierWithSender wraps an existing sender (used in tests).
func NewNotifierWithSender(sender Sender, cfg Config, log *logger.Logger) *Notifier {
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Notifier{
		sender:      sender,
		chatID:      cfg.ChatID,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute),
		timeout:     cfg.RequestTimeout,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      log,
	}
}

func (n *Notifier) Name() string {
	return "telegram"
}

// Notify sends the announcement, retrying transient failures.
func (n *Notifier) Notify(ctx context.Context, announcement *dto.AnnouncementDTO) error {
	if announcement == nil {
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	params := &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   FormatAnnouncement(announcement),
	}

	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		_, err := n.sender.SendMessage(sendCtx, params)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		n.logger.Warn("Telegram send attempt failed",
			"attempt", attempt,
			"max_attempts", n.maxAttempts,
			"error", err.Error(),
		)
		if attempt == n.maxAttempts {
			break
		}

		select {
		case <-time.After(n.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("failed to send telegram message to chat_id %d after %d attempts: %w", n.chatID, n.maxAttempts, lastErr)
}

// FormatAnnouncement renders the plain-text message body.
func FormatAnnouncement(a *dto.AnnouncementDTO) string {
	return fmt.Sprintf("🚨 %s\n\nAlert state: %s\nOwner: %s\nRaised at: %s",
		a.Title,
		a.AlertState,
		a.ActionOwner,
		a.RaisedAt.UTC().Format(time.RFC3339),
	)
}
