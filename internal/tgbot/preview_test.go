package tgbot

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geergon/linkdrop-bot/internal/yt"
)

func TestPreviewSendsPhotoWithOneControl(t *testing.T) {
	h := newHarness(t)
	h.extractor.info = &yt.VideoInfo{Title: "Demo", Thumbnail: "http://x/thumb.jpg", ExtractorKey: "Generic"}

	require.NoError(t, h.bot.Preview(context.Background(), textUpdate(5, "https://example.com/watch?v=abc")))

	sent := h.api.Sent()
	require.Len(t, sent, 1)
	photo, ok := sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok, "expected a photo, got %T", sent[0])
	assert.Equal(t, int64(5), photo.ChatID)
	assert.Equal(t, tgbotapi.FileURL("http://x/thumb.jpg"), photo.File)
	assert.Contains(t, photo.Caption, "Demo")
	assert.Contains(t, photo.Caption, "Generic")

	markup, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, CallbackDownload, *markup.InlineKeyboard[0][0].CallbackData)

	url, ok, err := h.store.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/watch?v=abc", url)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.bot.metrics.previews.WithLabelValues(yt.PlatformOther, resultOK)))
}

func TestPreviewDefaultsAndOptions(t *testing.T) {
	h := newHarness(t)
	h.extractor.info = &yt.VideoInfo{Thumbnail: "http://x/t.jpg"}

	require.NoError(t, h.bot.Preview(context.Background(), textUpdate(5, "  https://youtu.be/abc  ")))

	photo := h.api.Sent()[0].(tgbotapi.PhotoConfig)
	assert.Contains(t, photo.Caption, "No Title")
	assert.Contains(t, photo.Caption, "Unknown")

	opts := h.extractor.lastOpts
	assert.Equal(t, []string{"web", "android"}, opts.PlayerClients)
	assert.Equal(t, h.settings.cfg.Ytdlp.UserAgent, opts.Headers["User-Agent"])
	assert.Empty(t, opts.CookiesFile, "cookies file does not exist")

	url, _, _ := h.store.Get(context.Background(), 5)
	assert.Equal(t, "https://youtu.be/abc", url)
}

func TestPreviewEscapesMarkdown(t *testing.T) {
	h := newHarness(t)
	h.extractor.info = &yt.VideoInfo{Title: "my_clip *best*", Thumbnail: "http://x/t.jpg", ExtractorKey: "Youtube"}

	require.NoError(t, h.bot.Preview(context.Background(), textUpdate(5, "https://youtu.be/abc")))

	photo := h.api.Sent()[0].(tgbotapi.PhotoConfig)
	assert.Contains(t, photo.Caption, `my\_clip \*best\*`)
	assert.Equal(t, tgbotapi.ModeMarkdown, photo.ParseMode)
}

func TestPreviewWithoutThumbnailSendsText(t *testing.T) {
	h := newHarness(t)
	h.extractor.info = &yt.VideoInfo{Title: "Demo", ExtractorKey: "Generic"}

	require.NoError(t, h.bot.Preview(context.Background(), textUpdate(5, "https://example.com/v")))

	sent := h.api.Sent()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "Demo")
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, msg.ReplyMarkup)
}

func TestPreviewFallsBackWhenPhotoRejected(t *testing.T) {
	h := newHarness(t)
	h.extractor.info = &yt.VideoInfo{Title: "Demo", Thumbnail: "http://x/t.webp"}
	h.api.sendErr = func(c tgbotapi.Chattable) error {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			return errors.New("Bad Request: wrong file identifier/HTTP URL specified")
		}
		return nil
	}

	require.NoError(t, h.bot.Preview(context.Background(), textUpdate(5, "https://example.com/v")))

	sent := h.api.Sent()
	require.Len(t, sent, 2)
	assert.IsType(t, tgbotapi.MessageConfig{}, sent[1])
}

func TestPreviewFetchFailureLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.extractor.infoErr = errors.New("Unsupported URL")

	require.NoError(t, h.bot.Preview(ctx, textUpdate(5, "not a link")))

	_, ok, err := h.store.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok, "failed lookup must not create a session")
	assert.Equal(t, []string{msgFetchFailed}, h.api.texts())

	// An existing entry is not overwritten either.
	require.NoError(t, h.store.Put(ctx, 5, "https://kept"))
	require.NoError(t, h.bot.Preview(ctx, textUpdate(5, "https://broken")))
	url, _, _ := h.store.Get(ctx, 5)
	assert.Equal(t, "https://kept", url)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.bot.metrics.previews.WithLabelValues(yt.PlatformOther, KindFetchFailed.String())))
}

func TestPreviewLastWriteWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.extractor.info = &yt.VideoInfo{Title: "Demo", Thumbnail: "http://x/t.jpg"}

	require.NoError(t, h.bot.Preview(ctx, textUpdate(5, "https://first")))
	require.NoError(t, h.bot.Preview(ctx, textUpdate(5, "https://second")))

	url, ok, err := h.store.Get(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://second", url)
}

func TestPreviewRestricted(t *testing.T) {
	h := newHarness(t)
	h.settings.cfg.Access.Restrict = true
	h.settings.cfg.Access.AllowedChats = []int64{100}
	h.extractor.info = &yt.VideoInfo{Title: "Demo"}

	require.NoError(t, h.bot.Preview(context.Background(), textUpdate(5, "https://x")))
	assert.Empty(t, h.api.Sent())
	assert.Zero(t, h.extractor.fetchCalls)

	require.NoError(t, h.bot.Preview(context.Background(), textUpdate(100, "https://x")))
	assert.Len(t, h.api.Sent(), 1)
}

func TestStart(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.bot.Start(context.Background(), commandUpdate(5, 5, "/start")))
	assert.Equal(t, []string{msgGreeting}, h.api.texts())
}
