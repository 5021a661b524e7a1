// Package telegram delivers outage notifications to subscribers through
// a Telegram bot. Send errors are classified so the scheduler can tell
// "stop trying this subscriber" from "try again later".
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
)

var (
	// ErrForbidden means the subscriber blocked the bot or deleted their
	// account. Delivery to them stops until they re-subscribe.
	ErrForbidden = errors.New("subscriber unreachable")

	// ErrRateLimited means Telegram asked us to slow down. The send may be
	// retried after a backoff.
	ErrRateLimited = errors.New("telegram rate limited")

	// ErrNetwork covers transient transport failures. The send may be
	// retried; no receipt is recorded, so at worst the next cycle repeats it.
	ErrNetwork = errors.New("telegram request failed")
)

// Sender sends messages through one bot account.
type Sender struct {
	bot    *bot.Bot
	logger *slog.Logger
}

// NewSender creates a Telegram sender. The token is validated against
// the Bot API immediately so a misconfigured deployment fails at
// startup, not on the first notification.
func NewSender(token string, logger *slog.Logger, opts ...bot.Option) (*Sender, error) {
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}
	return &Sender{bot: b, logger: logger}, nil
}

// Send delivers one message to a subscriber. With silent set the
// message arrives without a notification sound, which is how quiet
// hours are honored without dropping the message.
func (s *Sender) Send(ctx context.Context, subscriberID int64, text string, silent bool) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:              subscriberID,
		Text:                text,
		DisableNotification: silent,
	})
	if err != nil {
		return s.classify(subscriberID, err)
	}
	return nil
}

func (s *Sender) classify(subscriberID int64, err error) error {
	switch {
	case errors.Is(err, bot.ErrorForbidden):
		s.logger.Info("subscriber blocked the bot", "subscriber_id", subscriberID)
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	case bot.IsTooManyRequestsError(err), errors.Is(err, bot.ErrorTooManyRequests):
		s.logger.Warn("telegram rate limit hit", "subscriber_id", subscriberID)
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}
