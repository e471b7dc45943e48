package api

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dinacontroller/bridge/domain/control"
	customlog "github.com/dinacontroller/bridge/pkg/log"
	"github.com/dinacontroller/bridge/services"
)

// AppName is reported by GET /.
const AppName = "Dina Controller Bridge"

// Options configures the HTTP app.
type Options struct {
	Control ControlService
	Profile services.ProfileService
	Logger  customlog.Logger
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

// NewApp builds the fiber app with every bridge route registered.
func NewApp(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               AppName,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[HTTP] ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": AppName,
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	RegisterControlRoutes(app, opts.Control, opts.Logger)
	if opts.Profile != nil {
		RegisterProfileRoutes(app, opts.Profile, opts.Logger)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/joystick", websocket.New(func(conn *websocket.Conn) {
		JoystickWebSocketHandler(conn, opts.Logger, opts.Control)
	}))

	return app
}

// errorHandler maps domain errors onto status codes and renders every error
// as ErrorResponse.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, control.ErrTransitionInProgress):
		code = fiber.StatusConflict
	case errors.Is(err, control.ErrControllerClosed):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, services.ErrInvalidProfile):
		code = fiber.StatusBadRequest
	}

	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
