package tgbot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Geergon/linkdrop-bot/internal/config"
)

const settingsCallbackPrefix = "cb_settings_"

const msgSettings = "⚙️ Bot settings:\nTap an option to switch it on or off."

// settingKeys maps callback data to the config key it toggles.
var settingKeys = map[string]string{
	settingsCallbackPrefix + "use_cookies":   config.KeyUseCookies,
	settingsCallbackPrefix + "spoof_clients": config.KeySpoofClients,
}

func boolToEmoji(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

func (b *Bot) settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"Send cookies: "+boolToEmoji(b.settings.Bool(config.KeyUseCookies)),
			settingsCallbackPrefix+"use_cookies")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"Spoof player clients: "+boolToEmoji(b.settings.Bool(config.KeySpoofClients)),
			settingsCallbackPrefix+"spoof_clients")),
	)
}

// Settings shows the extractor toggles to an admin.
func (b *Bot) Settings(_ context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if !b.isAdmin(msg.From) {
		return nil
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, msgSettings)
	reply.ReplyMarkup = b.settingsKeyboard()
	_, err := b.api.Send(reply)
	return err
}

func (b *Bot) SettingsCallback(_ context.Context, update tgbotapi.Update) error {
	q := update.CallbackQuery
	answer := tgbotapi.NewCallback(q.ID, "")
	defer func() {
		if _, err := b.api.Request(answer); err != nil {
			b.log.Warn("answer callback failed", zap.String("query_id", q.ID), zap.Error(err))
		}
	}()

	if !b.isAdmin(q.From) {
		return nil
	}
	key, ok := settingKeys[q.Data]
	if !ok {
		b.log.Warn("unknown settings callback", zap.String("data", q.Data))
		return nil
	}

	value, err := b.settings.Toggle(key)
	if err != nil {
		b.log.Error("save settings failed", zap.String("key", key), zap.Error(err))
		answer.Text = "Setting changed but could not be saved."
	}
	b.log.Info("setting changed", zap.String("key", key), zap.Bool("value", value),
		zap.String("by", senderName(q.From)))

	if q.Message == nil || q.Message.Chat == nil {
		return nil
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(q.Message.Chat.ID, q.Message.MessageID,
		msgSettings, b.settingsKeyboard())
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("edit settings message failed", zap.Error(err))
	}
	return nil
}
