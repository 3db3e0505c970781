package tgbot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxMessageLength = 4096

// UpdateYtdlp lets an admin update the extractor in place.
func (b *Bot) UpdateYtdlp(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if !b.isAdmin(msg.From) {
		return nil
	}

	report, err := b.extractor.SelfUpdate(ctx)
	if err != nil {
		report = "yt-dlp update failed: " + err.Error() + "\n\n" + report
	}
	if report == "" {
		report = "yt-dlp produced no output."
	}
	return b.reply(msg.Chat.ID, truncate(report, maxMessageLength))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
