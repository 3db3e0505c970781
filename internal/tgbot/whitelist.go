package tgbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Geergon/linkdrop-bot/internal/database"
)

const (
	msgWhitelistDisabled = "Whitelist database is disabled."
	usageAllow           = "Usage: /allow <user_id> <username>"
	usageDeny            = "Usage: /deny <username>"
)

// Allow adds a user to the whitelist: /allow <user_id> <username>.
func (b *Bot) Allow(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if !b.isAdmin(msg.From) {
		return nil
	}
	chatID := msg.Chat.ID
	if b.db == nil {
		return b.reply(chatID, msgWhitelistDisabled)
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.reply(chatID, usageAllow)
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.reply(chatID, usageAllow)
	}
	username := strings.TrimPrefix(args[1], "@")

	if err := database.InsertIntoWhitelist(ctx, b.db, username, userID); err != nil {
		b.log.Error("whitelist insert failed", zap.Int64("user_id", userID), zap.Error(err))
		return b.reply(chatID, "Could not update the whitelist.")
	}
	b.log.Info("user whitelisted", zap.Int64("user_id", userID), zap.String("username", username))
	return b.reply(chatID, fmt.Sprintf("@%s (%d) can use the bot now.", username, userID))
}

// Deny removes a user from the whitelist: /deny <username>.
func (b *Bot) Deny(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if !b.isAdmin(msg.From) {
		return nil
	}
	chatID := msg.Chat.ID
	if b.db == nil {
		return b.reply(chatID, msgWhitelistDisabled)
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return b.reply(chatID, usageDeny)
	}
	username := strings.TrimPrefix(args[0], "@")

	removed, err := database.DeleteUser(ctx, b.db, username)
	if err != nil {
		b.log.Error("whitelist delete failed", zap.String("username", username), zap.Error(err))
		return b.reply(chatID, "Could not update the whitelist.")
	}
	if !removed {
		return b.reply(chatID, fmt.Sprintf("@%s is not whitelisted.", username))
	}
	return b.reply(chatID, fmt.Sprintf("@%s removed from the whitelist.", username))
}

// Whitelist lists whitelisted users.
func (b *Bot) Whitelist(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if !b.isAdmin(msg.From) {
		return nil
	}
	chatID := msg.Chat.ID
	if b.db == nil {
		return b.reply(chatID, msgWhitelistDisabled)
	}

	entries, err := database.GetAllWhitelist(ctx, b.db)
	if err != nil {
		b.log.Error("whitelist read failed", zap.Error(err))
		return b.reply(chatID, "Could not read the whitelist.")
	}
	if len(entries) == 0 {
		return b.reply(chatID, "Whitelist is empty.")
	}
	var sb strings.Builder
	sb.WriteString("Whitelisted users:\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "@%s (%d)\n", e.Username, e.UserID)
	}
	return b.reply(chatID, strings.TrimSpace(sb.String()))
}
