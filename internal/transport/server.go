package transport

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kursadbilgin/crm-mailer/internal/observability"
	"go.uber.org/zap"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 60 * time.Second
	idleTimeout  = 60 * time.Second
)

// NewApp builds the fiber app with the shared middleware chain. When metrics
// is non-nil, HTTP metrics are recorded and exposed on /metrics.
func NewApp(logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "crm-mailer",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		IdleTimeout:           idleTimeout,
	})

	app.Use(recover.New())
	app.Use(CorrelationID())
	if metrics != nil {
		app.Use(metrics.HTTPMiddleware())
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	return app
}
