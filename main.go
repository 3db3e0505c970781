package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Geergon/linkdrop-bot/internal/config"
	"github.com/Geergon/linkdrop-bot/internal/database"
	"github.com/Geergon/linkdrop-bot/internal/logger"
	"github.com/Geergon/linkdrop-bot/internal/server"
	"github.com/Geergon/linkdrop-bot/internal/session"
	"github.com/Geergon/linkdrop-bot/internal/tgbot"
	"github.com/Geergon/linkdrop-bot/internal/yt"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	root := &cobra.Command{
		Use:           "linkdrop-bot",
		Short:         "Telegram bot that previews and downloads videos from links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := serve(ctx, configPath); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before config")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the yt-dlp version in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return err
			}
			v, err := yt.NewClient(m.Config().Ytdlp.Path, nil).Version(cmd.Context())
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return err
			}
			fmt.Println(v)
			return nil
		},
	})
	return root
}

// loadEnv reads a dotenv file if there is one. Hosted deployments set the
// environment directly.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}

func serve(ctx context.Context, configPath string) error {
	m, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg := m.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	logger.RouteBotAPI(log)

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return errors.Wrap(err, "connect to bot api")
	}
	api.Debug = cfg.Bot.Debug
	log.Info("authorized", zap.String("username", api.Self.UserName))

	db, err := openDB(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	store, err := session.New(cfg.Session.Backend, cfg.Session.Capacity, db)
	if err != nil {
		return err
	}

	written, err := yt.WriteCookies(cfg.Ytdlp.CookiesFile, cfg.Ytdlp.Cookies)
	if err != nil {
		return err
	}
	if written {
		log.Info("cookies written", zap.String("file", cfg.Ytdlp.CookiesFile))
	}
	extractor := yt.NewClient(cfg.Ytdlp.Path, log)
	if v, err := extractor.Version(ctx); err != nil {
		log.Warn("yt-dlp not runnable", zap.String("path", cfg.Ytdlp.Path), zap.Error(err))
	} else {
		log.Info("yt-dlp found", zap.String("version", v))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bot := tgbot.New(tgbot.Deps{
		API:       api,
		Settings:  m,
		Store:     store,
		Extractor: extractor,
		DB:        db,
		Metrics:   tgbot.NewMetrics(reg),
		Log:       log,
	})
	dispatcher := tgbot.NewDispatcher(bot, log)
	srv := server.New(cfg.Server.ListenAddr(), cfg.Bot.Token, dispatcher, reg, log)
	lifecycle := tgbot.NewLifecycle(api, cfg.WebhookURL(), log)

	stopWatch, err := m.Watch(log)
	if err != nil {
		log.Warn("config watch disabled", zap.Error(err))
	} else {
		defer func() { _ = stopWatch() }()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return lifecycle.Register(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		if err := dispatcher.Wait(sctx); err != nil {
			log.Warn("in-flight updates abandoned", zap.Error(err))
		}
		if err := lifecycle.Deregister(sctx); err != nil {
			log.Warn("deregister webhook", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, nil
	}
	return database.InitDB(ctx, path)
}
