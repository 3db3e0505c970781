package tgbot

import (
	"context"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// SendLogs sends the current log file to an admin.
func (b *Bot) SendLogs(_ context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if !b.isAdmin(msg.From) {
		return nil
	}
	chatID := msg.Chat.ID

	logFile := b.settings.Config().Log.File
	if logFile == "" {
		return b.reply(chatID, "File logging is disabled.")
	}
	fileInfo, err := os.Stat(logFile)
	if err != nil {
		b.log.Warn("stat log file failed", zap.String("file", logFile), zap.Error(err))
		return b.reply(chatID, "Log file is not available.")
	}
	if fileInfo.IsDir() {
		return b.reply(chatID, "Log file path is a directory.")
	}
	if fileInfo.Size() == 0 {
		return b.reply(chatID, "Log file is empty.")
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(logFile))
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error("send log file failed", zap.Error(err))
		return b.reply(chatID, "Failed to upload the log file.")
	}
	return nil
}
