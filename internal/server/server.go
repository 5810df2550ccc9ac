package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ledger-engine/internal/config"
	"github.com/congo-pay/ledger-engine/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
	cfg := d.Cfg
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             cfg.MaxUploadBytes,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          60 * time.Second,
		DisableStartupMessage: true,
	})

	if err := routes.Setup(app, d); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
