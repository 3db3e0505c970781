package tgbot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Geergon/linkdrop-bot/internal/yt"
)

const (
	CallbackDownload = "dl"

	msgGreeting  = "Send any video link (YouTube, Instagram, TikTok, Facebook)."
	downloadText = "📥 Download MP4"
)

func downloadKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(downloadText, CallbackDownload),
		),
	)
}

func previewCaption(info *yt.VideoInfo) string {
	return fmt.Sprintf("📌 *%s*\n🎬 Platform: %s",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, info.TitleOrDefault()),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, info.PlatformOrDefault()))
}

func (b *Bot) Start(_ context.Context, update tgbotapi.Update) error {
	return b.reply(update.Message.Chat.ID, msgGreeting)
}

// Preview treats the message text as a link, looks it up without downloading
// and answers with thumbnail, title and a Download button. The link is
// remembered for the chat only when the lookup succeeds.
func (b *Bot) Preview(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	chatID := msg.Chat.ID
	if !b.allowed(ctx, chatID, msg.From) {
		return nil
	}

	url := strings.TrimSpace(msg.Text)
	platform := yt.DetectPlatform(url)
	log := b.log.With(zap.Int64("chat_id", chatID), zap.String("url", url), zap.String("platform_hint", platform))

	info, err := b.extractor.FetchInfo(ctx, url, b.extractorOptions())
	if err != nil {
		e := newError(KindFetchFailed, err)
		log.Error("metadata fetch failed", zap.Error(err))
		b.metrics.preview(platform, e.Kind.String())
		return b.reply(chatID, e.UserMessage())
	}

	if err := b.store.Put(ctx, chatID, url); err != nil {
		e := newError(KindFetchFailed, err)
		log.Error("store session failed", zap.Error(err))
		b.metrics.preview(platform, e.Kind.String())
		return b.reply(chatID, e.UserMessage())
	}

	caption := previewCaption(info)
	if info.Thumbnail != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(info.Thumbnail))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.ReplyMarkup = downloadKeyboard()
		_, err = b.api.Send(photo)
		if err == nil {
			b.metrics.preview(platform, resultOK)
			return nil
		}
		// Telegram refuses some thumbnail formats; the text preview still works.
		log.Warn("send photo preview failed, falling back to text", zap.String("thumbnail", info.Thumbnail), zap.Error(err))
	}

	text := tgbotapi.NewMessage(chatID, caption)
	text.ParseMode = tgbotapi.ModeMarkdown
	text.ReplyMarkup = downloadKeyboard()
	if _, err := b.api.Send(text); err != nil {
		log.Error("send preview failed", zap.Error(err))
		b.metrics.preview(platform, "send_failed")
		return err
	}
	b.metrics.preview(platform, resultOK)
	return nil
}
