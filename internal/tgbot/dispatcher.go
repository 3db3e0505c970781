package tgbot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, update tgbotapi.Update) error

// Dispatcher routes updates to the bot handlers.
type Dispatcher struct {
	bot      *Bot
	commands map[string]handlerFunc
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(bot *Bot, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		bot: bot,
		commands: map[string]handlerFunc{
			"start":     bot.Start,
			"help":      bot.Start,
			"logs":      bot.SendLogs,
			"update":    bot.UpdateYtdlp,
			"settings":  bot.Settings,
			"allow":     bot.Allow,
			"deny":      bot.Deny,
			"whitelist": bot.Whitelist,
		},
		log: log.Named("dispatcher"),
	}
}

// Process handles the update in the background and returns immediately.
// Failures are logged, never returned to the caller.
func (d *Dispatcher) Process(ctx context.Context, update tgbotapi.Update) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("handler panic", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
			}
		}()
		if err := d.Dispatch(ctx, update); err != nil {
			d.log.Error("handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight updates finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch routes one update synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return d.dispatchCallback(ctx, update)
	case update.Message != nil:
		return d.dispatchMessage(ctx, update)
	default:
		d.bot.metrics.update("ignored")
		return nil
	}
}

func (d *Dispatcher) dispatchCallback(ctx context.Context, update tgbotapi.Update) error {
	q := update.CallbackQuery
	switch {
	case q.Data == CallbackDownload:
		d.bot.metrics.update("download")
		return d.bot.Download(ctx, update)
	case strings.HasPrefix(q.Data, settingsCallbackPrefix):
		d.bot.metrics.update("settings")
		return d.bot.SettingsCallback(ctx, update)
	default:
		d.bot.metrics.update("ignored")
		_, err := d.bot.api.Request(tgbotapi.NewCallback(q.ID, ""))
		return err
	}
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg.IsCommand() {
		h, ok := d.commands[strings.ToLower(msg.Command())]
		if !ok {
			d.bot.metrics.update("ignored")
			return nil
		}
		d.bot.metrics.update("command")
		return h(ctx, update)
	}
	if strings.TrimSpace(msg.Text) == "" {
		d.bot.metrics.update("ignored")
		return nil
	}
	d.bot.metrics.update("link")
	return d.bot.Preview(ctx, update)
}
