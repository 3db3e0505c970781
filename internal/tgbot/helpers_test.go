package tgbot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Geergon/linkdrop-bot/internal/config"
	"github.com/Geergon/linkdrop-bot/internal/session"
	"github.com/Geergon/linkdrop-bot/internal/yt"
)

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	// sendErr decides per message whether Send fails.
	sendErr    func(c tgbotapi.Chattable) error
	requestErr func(c tgbotapi.Chattable) error
	nextID     int
}

func (m *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	if m.sendErr != nil {
		if err := m.sendErr(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	m.nextID++
	return tgbotapi.Message{MessageID: m.nextID}, nil
}

func (m *fakeMessenger) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	if m.requestErr != nil {
		if err := m.requestErr(c); err != nil {
			return nil, err
		}
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *fakeMessenger) Sent() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.sent...)
}

func (m *fakeMessenger) Requests() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.requests...)
}

func (m *fakeMessenger) texts() []string {
	var out []string
	for _, c := range m.Sent() {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

type fakeExtractor struct {
	info        *yt.VideoInfo
	infoErr     error
	downloadErr error
	// download is called to produce the file; it gets the options dir.
	download   func(opts yt.Options) string
	lastOpts   yt.Options
	fetchCalls int
	dlCalls    int
	update     string
	updateErr  error
}

func (e *fakeExtractor) FetchInfo(_ context.Context, _ string, opts yt.Options) (*yt.VideoInfo, error) {
	e.fetchCalls++
	e.lastOpts = opts
	if e.infoErr != nil {
		return nil, e.infoErr
	}
	return e.info, nil
}

func (e *fakeExtractor) Download(_ context.Context, _ string, opts yt.Options) (string, error) {
	e.dlCalls++
	e.lastOpts = opts
	if e.downloadErr != nil {
		return "", e.downloadErr
	}
	return e.download(opts), nil
}

func (e *fakeExtractor) SelfUpdate(context.Context) (string, error) {
	return e.update, e.updateErr
}

type fakeSettings struct {
	mu  sync.Mutex
	cfg config.Config
}

func (s *fakeSettings) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *fakeSettings) Bool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case config.KeyUseCookies:
		return s.cfg.Ytdlp.UseCookies
	case config.KeySpoofClients:
		return s.cfg.Ytdlp.SpoofClients
	}
	return false
}

func (s *fakeSettings) Toggle(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case config.KeyUseCookies:
		s.cfg.Ytdlp.UseCookies = !s.cfg.Ytdlp.UseCookies
		return s.cfg.Ytdlp.UseCookies, nil
	case config.KeySpoofClients:
		s.cfg.Ytdlp.SpoofClients = !s.cfg.Ytdlp.SpoofClients
		return s.cfg.Ytdlp.SpoofClients, nil
	}
	return false, errors.Errorf("unknown key %s", key)
}

type harness struct {
	bot       *Bot
	api       *fakeMessenger
	extractor *fakeExtractor
	settings  *fakeSettings
	store     *session.MemoryStore
	registry  *prometheus.Registry
	scratch   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := session.NewMemoryStore(0)
	require.NoError(t, err)

	scratch := t.TempDir()
	settings := &fakeSettings{cfg: config.Config{
		Log: config.LogConfig{File: filepath.Join(scratch, "bot.log")},
		Ytdlp: config.YtdlpConfig{
			UserAgent:     config.DefaultUserAgent,
			PlayerClients: []string{"web", "android"},
			SpoofClients:  true,
			Retries:       3,
			ScratchDir:    scratch,
		},
		Access: config.AccessConfig{Admins: []int64{1}},
	}}

	h := &harness{
		api:       &fakeMessenger{},
		extractor: &fakeExtractor{},
		settings:  settings,
		store:     store,
		registry:  prometheus.NewRegistry(),
		scratch:   scratch,
	}
	h.bot = New(Deps{
		API:       h.api,
		Settings:  settings,
		Store:     store,
		Extractor: h.extractor,
		Metrics:   NewMetrics(h.registry),
	})
	return h
}

// fileOfSize creates a sparse file of the given size inside the options dir.
func fileOfSize(t *testing.T, size int64) func(opts yt.Options) string {
	return func(opts yt.Options) string {
		require.NoError(t, os.MkdirAll(opts.OutputDir, 0o755))
		path := filepath.Join(opts.OutputDir, "Demo.mp4")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(size))
		require.NoError(t, f.Close())
		return path
	}
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: chatID, UserName: "alice"},
			Chat:      &tgbotapi.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func commandUpdate(chatID, userID int64, text string) tgbotapi.Update {
	u := textUpdate(chatID, text)
	u.Message.From = &tgbotapi.User{ID: userID, UserName: "admin"}
	cmd := text
	for i, r := range text {
		if r == ' ' {
			cmd = text[:i]
			break
		}
	}
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return u
}

func callbackUpdate(chatID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "q1",
			From: &tgbotapi.User{ID: chatID},
			Message: &tgbotapi.Message{
				MessageID: messageID,
				Chat:      &tgbotapi.Chat{ID: chatID},
			},
			Data: data,
		},
	}
}
