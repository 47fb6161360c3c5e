package httpserver

import (
	"context"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var log = logger.GetLogger()

// RouteRegistrar mounts a module's routes on the shared router.
type RouteRegistrar interface {
	Register(router fiber.Router)
}

// RegistrarFunc adapts a plain function to RouteRegistrar.
type RegistrarFunc func(router fiber.Router)

func (f RegistrarFunc) Register(router fiber.Router) { f(router) }

type Server struct {
	app *fiber.App
}

// NewServer builds the fiber app with request logging, /health and the given
// registrars mounted under prefix.
func NewServer(prefix string, registrars ...RouteRegistrar) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_addr", c.IP()),
		)
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	api := app.Group(prefix)
	for _, r := range registrars {
		r.Register(api)
	}

	return &Server{app: app}
}

// App exposes the underlying fiber app, mainly for routes that need it directly and for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
