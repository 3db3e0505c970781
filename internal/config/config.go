package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-faster/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	KeyUseCookies   = "ytdlp.use_cookies"
	KeySpoofClients = "ytdlp.spoof_clients"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/126.0 Safari/537.36"

var ErrMissingToken = errors.New("BOT_TOKEN is not set")
var ErrMissingHostname = errors.New("external hostname is not set (WEBHOOK_HOST or RENDER_EXTERNAL_HOSTNAME)")

type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Ytdlp    YtdlpConfig    `mapstructure:"ytdlp"`
	Access   AccessConfig   `mapstructure:"access"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
}

type BotConfig struct {
	Token string `mapstructure:"token"`
	Debug bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	Port     string `mapstructure:"port"`
	Hostname string `mapstructure:"hostname"`
	Scheme   string `mapstructure:"scheme"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// YtdlpConfig holds everything that ends up in the extractor options bag.
// UseCookies and SpoofClients switch the two optional parts of the bag on and
// off at runtime (see /settings).
type YtdlpConfig struct {
	Path              string   `mapstructure:"path"`
	UserAgent         string   `mapstructure:"user_agent"`
	PlayerClients     []string `mapstructure:"player_clients"`
	SpoofClients      bool     `mapstructure:"spoof_clients"`
	Cookies           string   `mapstructure:"cookies"`
	CookiesFile       string   `mapstructure:"cookies_file"`
	UseCookies        bool     `mapstructure:"use_cookies"`
	Retries           int      `mapstructure:"retries"`
	ScratchDir        string   `mapstructure:"scratch_dir"`
	OutputTemplate    string   `mapstructure:"output_template"`
	Format            string   `mapstructure:"format"`
	MergeOutputFormat string   `mapstructure:"merge_output_format"`
}

type AccessConfig struct {
	Restrict     bool    `mapstructure:"restrict"`
	AllowedChats []int64 `mapstructure:"allowed_chats"`
	AllowedUsers []int64 `mapstructure:"allowed_users"`
	Admins       []int64 `mapstructure:"admins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	Backend  string `mapstructure:"backend"`
	Capacity int    `mapstructure:"capacity"`
}

// ListenAddr returns the address the HTTP server binds to. PORT wins over
// server.addr so the usual PaaS convention works without a config file.
func (c ServerConfig) ListenAddr() string {
	if c.Port != "" {
		return ":" + c.Port
	}
	return c.Addr
}

// WebhookURL is the externally reachable URL registered with Telegram.
func (c Config) WebhookURL() string {
	scheme := c.Server.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := strings.TrimSuffix(c.Server.Hostname, "/")
	return scheme + "://" + host + "/" + c.Bot.Token
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return ErrMissingToken
	}
	if strings.TrimSpace(c.Server.Hostname) == "" {
		return ErrMissingHostname
	}
	return nil
}

// Manager owns the viper instance. Reads go through Config(), which returns a
// snapshot; Toggle flips a boolean and persists it when a config file is used.
type Manager struct {
	mu sync.RWMutex
	v  *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.debug", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.port", "")
	v.SetDefault("server.hostname", "")
	v.SetDefault("server.scheme", "https")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "bot.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("ytdlp.path", "yt-dlp")
	v.SetDefault("ytdlp.user_agent", DefaultUserAgent)
	v.SetDefault("ytdlp.player_clients", []string{"web", "android"})
	v.SetDefault(KeySpoofClients, true)
	v.SetDefault("ytdlp.cookies", "")
	v.SetDefault("ytdlp.cookies_file", "./cookies/cookies.txt")
	v.SetDefault(KeyUseCookies, true)
	v.SetDefault("ytdlp.retries", 3)
	v.SetDefault("ytdlp.scratch_dir", os.TempDir())
	v.SetDefault("ytdlp.output_template", "%(title)s.%(ext)s")
	v.SetDefault("ytdlp.format", "bestvideo+bestaudio/best")
	v.SetDefault("ytdlp.merge_output_format", "mp4")

	v.SetDefault("access.restrict", false)
	v.SetDefault("access.allowed_chats", []int64{})
	v.SetDefault("access.allowed_users", []int64{})
	v.SetDefault("access.admins", []int64{})

	v.SetDefault("database.path", "bot.db")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.capacity", 10000)
}

// Load reads the optional config file at path (or ./config.yaml when path is
// empty) and overlays the environment. It does not validate; callers that
// serve the webhook check Config().Validate().
func Load(path string) (*Manager, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by the deployment environment.
	if err := v.BindEnv("bot.token", "BOT_TOKEN"); err != nil {
		return nil, errors.Wrap(err, "bind BOT_TOKEN")
	}
	if err := v.BindEnv("server.hostname", "WEBHOOK_HOST", "RENDER_EXTERNAL_HOSTNAME"); err != nil {
		return nil, errors.Wrap(err, "bind hostname")
	}
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return nil, errors.Wrap(err, "bind PORT")
	}
	if err := v.BindEnv("ytdlp.cookies", "YTDLP_COOKIES"); err != nil {
		return nil, errors.Wrap(err, "bind YTDLP_COOKIES")
	}

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat config %s", path)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	return &Manager{v: v}, nil
}

func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var c Config
	if err := m.v.Unmarshal(&c); err != nil {
		// Only reachable with a malformed config file; fall back to the raw getters.
		c.Bot.Token = m.v.GetString("bot.token")
		c.Server.Hostname = m.v.GetString("server.hostname")
	}
	return c
}

func (m *Manager) Bool(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetBool(key)
}

// Toggle flips a boolean setting and returns the new value.
func (m *Manager) Toggle(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := !m.v.GetBool(key)
	m.v.Set(key, next)

	file := m.v.ConfigFileUsed()
	if file == "" {
		return next, nil
	}
	if _, err := os.Stat(file); err != nil {
		return next, nil
	}
	// Write through a file-only instance so values that came from the
	// environment (the bot token among them) never land in the file.
	fv := viper.New()
	fv.SetConfigFile(file)
	if err := fv.ReadInConfig(); err != nil {
		return next, errors.Wrap(err, "reread config")
	}
	fv.Set(key, next)
	if err := fv.WriteConfig(); err != nil {
		return next, errors.Wrap(err, "save config")
	}
	return next, nil
}

// Watch reloads the config file when it changes on disk. The directory is
// watched rather than the file because editors and Toggle may replace it.
// The returned stop func ends the watcher; it is a no-op without a file.
func (m *Manager) Watch(log *zap.Logger) (stop func() error, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	m.mu.RLock()
	file := m.v.ConfigFileUsed()
	m.mu.RUnlock()

	noop := func() error { return nil }
	if file == "" {
		return noop, nil
	}
	if _, err := os.Stat(file); err != nil {
		return noop, nil
	}
	file = filepath.Clean(file)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	if err := w.Add(filepath.Dir(file)); err != nil {
		_ = w.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(file))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != file || !e.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := m.reload(); err != nil {
					log.Warn("config reload failed", zap.String("file", file), zap.Error(err))
					continue
				}
				log.Info("config reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher", zap.Error(err))
			}
		}
	}()

	return func() error {
		err := w.Close()
		<-done
		return err
	}, nil
}

// reload re-reads the file under the write lock so snapshots never see a
// half-updated viper.
func (m *Manager) reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read config")
	}
	return nil
}
