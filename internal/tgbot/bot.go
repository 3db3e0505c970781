package tgbot

import (
	"context"
	"database/sql"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Geergon/linkdrop-bot/internal/config"
	"github.com/Geergon/linkdrop-bot/internal/session"
	"github.com/Geergon/linkdrop-bot/internal/yt"
)

// MaxUploadSize is the Bot API limit for files sent by a bot.
const MaxUploadSize int64 = 50 << 20

// Messenger is the part of *tgbotapi.BotAPI the handlers use.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Extractor resolves and downloads media. *yt.Client implements it.
type Extractor interface {
	FetchInfo(ctx context.Context, url string, opts yt.Options) (*yt.VideoInfo, error)
	Download(ctx context.Context, url string, opts yt.Options) (string, error)
	SelfUpdate(ctx context.Context) (string, error)
}

// Settings exposes the live configuration. *config.Manager implements it.
type Settings interface {
	Config() config.Config
	Bool(key string) bool
	Toggle(key string) (bool, error)
}

type Deps struct {
	API       Messenger
	Settings  Settings
	Store     session.Store
	Extractor Extractor
	// DB backs the whitelist; nil disables it.
	DB      *sql.DB
	Metrics *Metrics
	Log     *zap.Logger
}

type Bot struct {
	api       Messenger
	settings  Settings
	store     session.Store
	extractor Extractor
	db        *sql.DB
	metrics   *Metrics
	log       *zap.Logger
}

func New(d Deps) *Bot {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:       d.API,
		settings:  d.Settings,
		store:     d.Store,
		extractor: d.Extractor,
		db:        d.DB,
		metrics:   d.Metrics,
		log:       log.Named("tgbot"),
	}
}

// extractorOptions builds the yt-dlp options bag for one request from the
// current settings.
func (b *Bot) extractorOptions() yt.Options {
	c := b.settings.Config().Ytdlp

	opts := yt.DefaultOptions()
	if c.UserAgent != "" {
		opts.Headers["User-Agent"] = c.UserAgent
	}
	if c.SpoofClients && len(c.PlayerClients) > 0 {
		opts.PlayerClients = append([]string(nil), c.PlayerClients...)
	}
	if c.UseCookies && yt.CookiesAvailable(c.CookiesFile) {
		opts.CookiesFile = c.CookiesFile
	}
	opts.Retries = c.Retries
	if c.OutputTemplate != "" {
		opts.OutputTemplate = c.OutputTemplate
	}
	if c.Format != "" {
		opts.Format = c.Format
	}
	if c.MergeOutputFormat != "" {
		opts.MergeOutputFormat = c.MergeOutputFormat
	}
	return opts
}

func (b *Bot) reply(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		b.log.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}

func senderID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func senderName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}
