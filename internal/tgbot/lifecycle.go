package tgbot

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Lifecycle registers the webhook with Telegram on start and removes it on
// shutdown.
type Lifecycle struct {
	api Messenger
	url string
	log *zap.Logger
	// newBackOff is swapped in tests.
	newBackOff func() backoff.BackOff
}

func NewLifecycle(api Messenger, webhookURL string, log *zap.Logger) *Lifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{
		api: api,
		url: webhookURL,
		log: log.Named("webhook"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = time.Minute
			return backoff.WithMaxRetries(b, 5)
		},
	}
}

// Register calls setWebhook. Network failures are retried; an error answer
// from Telegram is not.
func (l *Lifecycle) Register(ctx context.Context) error {
	wh, err := tgbotapi.NewWebhook(l.url)
	if err != nil {
		return errors.Wrap(err, "build webhook config")
	}

	op := func() error {
		_, err := l.api.Request(wh)
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		l.log.Warn("set webhook failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(l.newBackOff(), ctx), notify); err != nil {
		return errors.Wrap(err, "set webhook")
	}
	l.log.Info("webhook registered", zap.String("url", redactToken(l.url)))
	return nil
}

func (l *Lifecycle) Deregister(context.Context) error {
	if _, err := l.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return errors.Wrap(err, "delete webhook")
	}
	l.log.Info("webhook removed")
	return nil
}

// redactToken hides the path, which carries the bot token.
func redactToken(u string) string {
	for i := len("https://"); i < len(u); i++ {
		if u[i] == '/' {
			return u[:i] + "/<token>"
		}
	}
	return u
}
