// Package server assembles the HTTP server: store, completion provider,
// domain services, evaluation pipeline and the v1 API routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/sprachsense/internal/profile"
	"github.com/hrygo/sprachsense/plugin/ai"
	"github.com/hrygo/sprachsense/server/internal/observability"
	apiv1 "github.com/hrygo/sprachsense/server/router/api/v1"
	"github.com/hrygo/sprachsense/server/service/curriculum"
	"github.com/hrygo/sprachsense/server/service/evaluation"
	"github.com/hrygo/sprachsense/server/service/grading"
	"github.com/hrygo/sprachsense/server/service/memory"
	"github.com/hrygo/sprachsense/store"
	"github.com/hrygo/sprachsense/store/cache"
)

// Server is the assembled HTTP server.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	evalCache  *cache.Cache
	pipeline   *evaluation.Pipeline
}

// NewServer wires all components together.
func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	var completion ai.CompletionService
	if profile.IsAIEnabled() {
		provider, err := ai.NewProvider(ai.ConfigFromProfile(profile))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create completion provider")
		}
		if err := provider.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid completion provider config")
		}
		completion = provider
	} else {
		slog.Warn("completion service disabled, grading falls back to heuristics")
	}

	memoryService := memory.NewService(st, completion)
	curriculumService := curriculum.NewService(st)
	grader := grading.NewGrader(completion)

	evalCache := cache.New(cache.Config{
		DefaultTTL:      profile.EvalCacheTTL,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        10000,
	})
	pipeline := evaluation.NewPipeline(
		memoryService,
		curriculumService,
		grader,
		cache.NewService(evalCache),
		evaluation.Options{
			TTL:         profile.EvalCacheTTL,
			RevealDelay: profile.EvalRevealDelay,
			MaxInFlight: profile.EvalMaxInFlight,
		},
	)

	s := &Server{
		Profile:    profile,
		Store:      st,
		echoServer: e,
		evalCache:  evalCache,
		pipeline:   pipeline,
	}

	api := apiv1.NewAPIV1Service(profile, st, memoryService, curriculumService, pipeline)
	api.Register(e)

	e.GET("/healthz", s.healthz)

	return s, nil
}

// Start runs the HTTP listener until it fails or is shut down.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("starting HTTP server", "address", address, "version", s.Profile.Version)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown stops the listener, drains in-flight pipelines and closes the
// store and caches.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}
	if err := s.pipeline.Shutdown(ctx); err != nil {
		slog.Warn("evaluation pipelines did not drain before deadline", "error", err)
	}
	s.evalCache.Close()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}

// healthz reports liveness including a DB ping and pipeline counters.
// GET /healthz
func (s *Server) healthz(c echo.Context) error {
	if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": "database unreachable"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.Profile.Version,
		"components": observability.GlobalMetrics().Snapshot(),
	})
}
