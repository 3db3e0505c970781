package tgbot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/Geergon/linkdrop-bot/internal/database"
)

// allowed reports whether the chat may use the bot. Without access.restrict
// everyone may.
func (b *Bot) allowed(ctx context.Context, chatID int64, user *tgbotapi.User) bool {
	access := b.settings.Config().Access
	if !access.Restrict {
		return true
	}

	userID := senderID(user)
	if slices.Contains(access.AllowedChats, chatID) ||
		slices.Contains(access.AllowedUsers, userID) ||
		slices.Contains(access.Admins, userID) {
		return true
	}

	if b.db != nil && userID != 0 {
		ok, err := database.IsUserInWhitelist(ctx, b.db, userID)
		if err != nil {
			b.log.Warn("whitelist lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		if ok {
			return true
		}
	}

	b.log.Warn("unauthorized access",
		zap.String("username", senderName(user)),
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID))
	b.metrics.denied()
	return false
}

func (b *Bot) isAdmin(user *tgbotapi.User) bool {
	userID := senderID(user)
	if userID != 0 && slices.Contains(b.settings.Config().Access.Admins, userID) {
		return true
	}
	b.log.Warn("unauthorized admin command",
		zap.String("username", senderName(user)),
		zap.Int64("user_id", userID))
	return false
}
