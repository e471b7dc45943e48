package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/dinacontroller/bridge/pkg/log"
	"github.com/dinacontroller/bridge/services"
)

// ProfileHandler holds dependencies for the drive profile endpoints.
type ProfileHandler struct {
	profileService services.ProfileService
	logger         customlog.Logger
}

// NewProfileHandler creates a handler for the drive profile endpoints.
func NewProfileHandler(profileService services.ProfileService, logger customlog.Logger) *ProfileHandler {
	if profileService == nil {
		panic("ProfileService cannot be nil in NewProfileHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewProfileHandler")
	}
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// RegisterProfileRoutes registers the drive profile endpoints under
// /api/v1/config.
func RegisterProfileRoutes(app *fiber.App, profileService services.ProfileService, logger customlog.Logger) {
	h := NewProfileHandler(profileService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/profile", h.handleGetProfile)
	apiGroup.Put("/profile", h.handleUpdateProfile)

	logger.Infof("Registered drive profile API endpoints under /api/v1/config")
}

// handleGetProfile returns the current drive profile as YAML.
func (h *ProfileHandler) handleGetProfile(c *fiber.Ctx) error {
	yamlData, err := h.profileService.GetCurrentProfileYAML()
	if err != nil {
		h.logger.Errorf("Failed to get drive profile YAML: %v", err)
		return fmt.Errorf("failed to retrieve drive profile: %w", err)
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdateProfile validates, stores and applies a YAML drive profile.
func (h *ProfileHandler) handleUpdateProfile(c *fiber.Ctx) error {
	switch ct := c.Get(fiber.HeaderContentType); ct {
	case "application/x-yaml", "application/yaml", "text/yaml", "":
	default:
		h.logger.Warnf("Drive profile PUT with Content-Type %s, parsing as YAML anyway", ct)
	}

	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "request body cannot be empty")
	}

	if err := h.profileService.UpdateProfile(body); err != nil {
		h.logger.Errorf("Failed to update drive profile: %v", err)
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Drive profile updated",
		"profile": h.profileService.GetCurrentProfile(),
	})
}
