// Package server wires the conversation engine behind an echo HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/docinsight/internal/profile"
	"github.com/hrygo/docinsight/plugin/ai"
	"github.com/hrygo/docinsight/plugin/ai/session"
	"github.com/hrygo/docinsight/plugin/ai/timeout"
	"github.com/hrygo/docinsight/plugin/textextract"
	"github.com/hrygo/docinsight/server/internal/observability"
	ratelimit "github.com/hrygo/docinsight/server/middleware"
	apiv1 "github.com/hrygo/docinsight/server/router/api/v1"
	"github.com/hrygo/docinsight/server/service/conversation"
)

type Server struct {
	Profile *profile.Profile
	Store   session.Store

	echoServer *echo.Echo
	cleanupJob *session.CleanupJob
}

// NewServer builds the store, capability adapters and routes described by p.
func NewServer(ctx context.Context, p *profile.Profile) (*Server, error) {
	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}
	llm, err := ai.NewLLMService(&aiConfig.LLM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM service")
	}

	tika := textextract.NewTikaClient(&textextract.Config{
		TikaServerURL: p.TikaServerURL,
		Timeout:       timeout.TextExtractTimeout,
	})
	if tika != nil && !tika.IsAvailable(ctx) {
		slog.Warn("tika server not reachable, pdf uploads will fail until it is", "url", p.TikaServerURL)
	}

	store := session.NewMemoryStore(session.StoreConfig{
		Capacity: p.SessionCapacity,
		IdleTTL:  p.SessionIdleTTL,
	})
	svc, err := conversation.NewService(conversation.Dependencies{
		Store:     store,
		Embedder:  embedder,
		LLM:       llm,
		Extractor: textextract.NewExtractor(tika),
		Metrics:   observability.NewMetrics(),
	}, conversation.NewConfigFromProfile(p))
	if err != nil {
		return nil, err
	}

	s := &Server{
		Profile:    p,
		Store:      store,
		cleanupJob: session.NewCleanupJob(store, session.CleanupConfig{CleanupInterval: p.CleanupInterval}),
	}
	s.echoServer = newEchoServer(p, svc)
	return s, nil
}

func newEchoServer(p *profile.Profile, svc conversation.Service) *echo.Echo {
	echoServer := echo.New()
	echoServer.Debug = p.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestID())
	echoServer.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Int64(observability.LogFieldDuration, v.Latency.Milliseconds()),
				slog.String(observability.LogFieldRequestID, v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}))

	limiter := ratelimit.NewRateLimiter(p.RateLimit, p.RateBurst)
	bodyLimit := middleware.BodyLimit(fmt.Sprintf("%dK", max(1, p.MaxUploadBytes>>10)))
	apiv1.NewAPIV1Service(p, svc).Register(echoServer, limiter.Middleware(apiv1.WriteError), bodyLimit)

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	return echoServer
}

// Start begins serving and starts background jobs. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	if s.cleanupJob.IsRunning() {
		return errors.New("server already started")
	}
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	s.cleanupJob.Start(ctx)

	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.echoServer.Listener == nil {
		return nil
	}
	return s.echoServer.Listener.Addr()
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// background jobs.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.cleanupJob.Stop()

	slog.Info("docinsight stopped properly", "sessions", s.Store.Len())
}
