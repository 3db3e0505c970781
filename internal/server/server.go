package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxUpdateSize bounds the webhook body; real updates are a few KiB.
const maxUpdateSize = 1 << 20

// Processor takes ownership of an update. It must not block on the handler.
type Processor interface {
	Process(ctx context.Context, update tgbotapi.Update)
}

type Server struct {
	echo  *echo.Echo
	addr  string
	token string
	proc  Processor
	log   *zap.Logger
}

// New builds the HTTP surface: the webhook at POST /<token>, a liveness
// route at GET / and Prometheus metrics at GET /metrics. A nil gatherer
// disables /metrics.
func New(addr, token string, proc Processor, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if addr == "" {
		addr = ":8080"
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		addr:  addr,
		token: token,
		proc:  proc,
		log:   log.Named("http"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", s.maskToken(v.URI)),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.log.Debug("request", fields...)
			return nil
		},
	}))

	e.GET("/", s.health)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	e.POST("/:token", s.webhook)

	s.echo = e
	return s
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "Bot running"})
}

// webhook acknowledges every well-formed update at once; handling continues
// in the background so Telegram does not redeliver slow updates.
func (s *Server) webhook(c echo.Context) error {
	if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(s.token)) != 1 {
		return echo.ErrNotFound
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUpdateSize))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body")
	}
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		s.log.Warn("malformed update", zap.Int("bytes", len(body)), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "malformed update")
	}

	// The request context ends with the response; the handler outlives it.
	s.proc.Process(context.WithoutCancel(c.Request().Context()), update)
	return c.NoContent(http.StatusOK)
}

func (s *Server) maskToken(uri string) string {
	if s.token == "" {
		return uri
	}
	return strings.ReplaceAll(uri, s.token, "<token>")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("listening", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
