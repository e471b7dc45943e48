package api

import (
	"github.com/gofiber/fiber/v2"

	customlog "github.com/dinacontroller/bridge/pkg/log"
)

// ControlHandler serves the operator endpoints.
type ControlHandler struct {
	control ControlService
	logger  customlog.Logger
}

// RegisterControlRoutes registers the status, mode and joystick endpoints
// under /api.
func RegisterControlRoutes(app *fiber.App, control ControlService, logger customlog.Logger) {
	if control == nil {
		panic("ControlService cannot be nil in RegisterControlRoutes")
	}
	h := &ControlHandler{control: control, logger: logger}

	apiGroup := app.Group("/api")
	apiGroup.Get("/status", h.handleStatus)
	apiGroup.Post("/mode/toggle", h.handleToggle)
	apiGroup.Post("/joystick", h.handleJoystick)
}

func (h *ControlHandler) handleStatus(c *fiber.Ctx) error {
	return c.JSON(h.control.Status())
}

func (h *ControlHandler) handleToggle(c *fiber.Ctx) error {
	mode, err := h.control.ToggleMode(c.UserContext())
	if err != nil {
		h.logger.Warnf("Mode toggle failed: %v", err)
		return err
	}
	return c.JSON(ModeResponse{Mode: mode})
}

func (h *ControlHandler) handleJoystick(c *fiber.Ctx) error {
	var req JoystickRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid joystick body: "+err.Error())
	}
	in, ok := req.input()
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "angle and displacement are required")
	}

	cmd, accepted := h.control.SubmitInput(in)
	return c.JSON(JoystickResponse{
		Command:  cmd,
		Accepted: accepted,
		Mode:     h.control.Status().Mode,
	})
}
