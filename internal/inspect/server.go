// Package inspect serves the HTTP inspection and settings API for a rig.
package inspect

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/config"
	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/store"
)

// Server exposes one rig over HTTP. Handlers reach the rig only through
// rig.Do, so the rig must be ticked by its owner while the server runs.
type Server struct {
	app     *fiber.App
	rig     *rig.Rig
	store   *store.Store
	timeout time.Duration
	log     *zap.Logger
}

// New builds the server. presets may be nil to disable persistence.
func New(r *rig.Rig, presets *store.Store, cfg config.InspectConfig) *Server {
	s := &Server{
		rig:     r,
		store:   presets,
		timeout: cfg.RequestTimeout,
		log:     logger.Named("inspect"),
	}
	if s.timeout <= 0 {
		s.timeout = 2 * time.Second
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		AppName:      "rigscope inspect",
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
	}))
	s.app.Use(requestLogger(s.log))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	api := s.app.Group("/api/v1")
	api.Get("/rig", s.getRig)
	api.Patch("/rig", s.patchRig)
	api.Get("/bones", s.getBones)
	api.Get("/joints", s.getJoints)
	api.Get("/constraints", s.getConstraints)
	api.Put("/bones/:name/constraint", s.putConstraint)
	api.Post("/bones/:name/lock", s.postLock)
	api.Post("/solve", s.postSolve)
	api.Post("/reset", s.postReset)
	api.Get("/presets", s.getPresets)
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("inspect API listening", zap.String("addr", addr), zap.String("rig", s.rig.ID.String()))
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestLogger logs each request at Debug, and failures at Warn.
func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil || status >= fiber.StatusInternalServerError {
			log.Warn("request failed", append(fields, zap.Error(err))...)
		} else if ce := log.Check(zap.DebugLevel, "request"); ce != nil {
			ce.Write(fields...)
		}
		return err
	}
}
