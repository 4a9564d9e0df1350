// Package http serves the servicios REST API on fiber.
package http

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/servicios/internal/logging"
	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/dmitrijs2005/servicios/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ServicioService is what the handlers need from the business layer.
type ServicioService interface {
	Create(ctx context.Context, servicio *models.Servicio) (*models.Servicio, error)
	Update(ctx context.Context, servicio *models.Servicio) (*models.Servicio, error)
	ListAll(ctx context.Context) ([]models.Servicio, error)
	GetByID(ctx context.Context, id int64) (*models.Servicio, bool, error)
	DeleteByID(ctx context.Context, id int64) error
	Search(ctx context.Context, query string) ([]models.Servicio, error)
}

// IconService issues presigned icon uploads.
type IconService interface {
	PresignUpload(ctx context.Context) (*services.IconUpload, error)
}

type HTTPServer struct {
	address   string
	appName   string
	app       *fiber.App
	servicios ServicioService
	icons     IconService
	logger    logging.Logger
	jwtSecret []byte
}

// NewHTTPServer builds the fiber app and registers the API routes. An empty
// secretKey leaves the API unauthenticated.
func NewHTTPServer(address, appName string, l logging.Logger, servicios ServicioService, icons IconService, secretKey string) *HTTPServer {
	s := &HTTPServer{
		address:   address,
		appName:   appName,
		servicios: servicios,
		icons:     icons,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.registerRoutes()
	return s
}

func (s *HTTPServer) registerRoutes() {
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	api := s.app.Group("/api")
	if len(s.jwtSecret) > 0 {
		api.Use(s.bearerAuth)
	}

	servicios := api.Group("/servicios")
	servicios.Post("/", s.createServicio)
	servicios.Put("/", s.updateServicio)
	servicios.Get("/", s.getAllServicios)
	servicios.Post("/icons", s.presignIcon)
	servicios.Get("/:id", s.getServicio)
	servicios.Delete("/:id", s.deleteServicio)

	api.Get("/_search/servicios", s.searchServicios)
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

func (s *HTTPServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithContext(context.Background()); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.app.Listener(listen); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
