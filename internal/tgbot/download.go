package tgbot

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgDownloading = "⏳ Downloading… Please wait..."

// Download runs when the Download button is pressed. It fetches the link last
// stored for the chat, checks the size limit and sends the file back.
// Sent files are removed; oversized ones stay on disk.
func (b *Bot) Download(ctx context.Context, update tgbotapi.Update) error {
	q := update.CallbackQuery
	// An unanswered callback keeps spinning in the client.
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Warn("answer callback failed", zap.String("query_id", q.ID), zap.Error(err))
	}
	if q.Message == nil || q.Message.Chat == nil {
		return nil
	}
	chatID := q.Message.Chat.ID
	if !b.allowed(ctx, chatID, q.From) {
		return nil
	}

	start := time.Now()
	size, err := b.download(ctx, chatID, q.Message.MessageID)
	if err != nil {
		e := asError(err, KindDownloadFailed)
		log := b.log.With(zap.Int64("chat_id", chatID))
		switch e.Kind {
		case KindNoSession:
			log.Info("download requested without a stored link")
		case KindTooLarge:
			log.Warn("download exceeds upload limit", zap.Int64("size", e.Size), zap.Error(err))
		default:
			log.Error("download failed", zap.Error(err))
		}
		b.metrics.download(e.Kind.String(), time.Since(start), 0)
		return b.reply(chatID, e.UserMessage())
	}

	b.metrics.download(resultOK, time.Since(start), size)
	return nil
}

func (b *Bot) download(ctx context.Context, chatID int64, messageID int) (int64, error) {
	url, ok, err := b.store.Get(ctx, chatID)
	if err != nil {
		return 0, newError(KindDownloadFailed, errors.Wrap(err, "load session"))
	}
	if !ok {
		return 0, newError(KindNoSession, errors.New("no link stored for chat"))
	}

	b.showProgress(chatID, messageID)

	opts := b.extractorOptions()
	// A directory per request keeps parallel downloads of the same title apart.
	opts.OutputDir = filepath.Join(b.settings.Config().Ytdlp.ScratchDir, uuid.NewString())

	path, err := b.extractor.Download(ctx, url, opts)
	if err != nil {
		return 0, newError(KindDownloadFailed, err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return 0, newError(KindDownloadFailed, errors.Wrap(err, "stat download"))
	}
	if st.Size() > MaxUploadSize {
		return 0, &Error{
			Kind: KindTooLarge,
			Size: st.Size(),
			Err:  errors.Errorf("%s is %d bytes", path, st.Size()),
		}
	}

	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.SupportsStreaming = true
	if _, err := b.api.Send(video); err != nil {
		return 0, newError(KindDownloadFailed, errors.Wrap(err, "send video"))
	}

	if err := os.Remove(path); err != nil {
		b.log.Warn("remove downloaded file failed", zap.String("file", path), zap.Error(err))
	}
	// Only succeeds when yt-dlp left nothing else behind.
	_ = os.Remove(opts.OutputDir)

	b.log.Info("video sent", zap.Int64("chat_id", chatID), zap.String("url", url), zap.Int64("size", st.Size()))
	return st.Size(), nil
}

// showProgress swaps the preview caption for a progress note. Text previews
// have no caption, so the text is edited instead.
func (b *Bot) showProgress(chatID int64, messageID int) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageCaption(chatID, messageID, msgDownloading)); err == nil {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, msgDownloading)); err != nil {
		b.log.Warn("edit preview failed", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
	}
}
