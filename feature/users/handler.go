package users

import (
	"errors"

	"directory-sync/core/logger"
	"directory-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for user synchronization.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleSync)
	group.Get("/report", h.HandleLastReport)
	group.Get("/users/:identifier", h.HandleInspect)
}

// dryRun reads the dry_run query parameter, falling back to the configured
// default. An unrecognised value is an error.
func (h *Handler) dryRun(c *fiber.Ctx) (bool, error) {
	raw := c.Query("dry_run")
	if raw == "" {
		return h.service.DefaultDryRun(), nil
	}
	return utils.ParseBool(raw)
}

func badDryRun(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "dry_run: " + err.Error()})
}

// HandleSync runs a synchronization pass.
// @Summary Run user synchronization
// @Param dry_run query bool false "Report decisions without persisting (defaults to configuration)"
// @Success 200 {object} reconcile.Report
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]any
// @Router /sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	dryRun, err := h.dryRun(c)
	if err != nil {
		l.Warn("Rejected sync request", zap.Error(err))
		return badDryRun(c, err)
	}

	report, err := h.service.Sync(c.UserContext(), dryRun)
	if err != nil {
		l.Error("Sync pass failed", zap.Bool("dry_run", dryRun), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}
	return c.JSON(report)
}

// HandleLastReport returns the most recent report for the requested mode.
// @Summary Last synchronization report
// @Param dry_run query bool false "Mode of the report (defaults to configuration)"
// @Success 200 {object} reconcile.Report
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sync/report [get]
func (h *Handler) HandleLastReport(c *fiber.Ctx) error {
	dryRun, err := h.dryRun(c)
	if err != nil {
		return badDryRun(c, err)
	}
	report, ok := h.service.LastReport(dryRun)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no report available"})
	}
	return c.JSON(report)
}

// HandleInspect compares a single user between source and target.
// @Summary Inspect user
// @Param identifier path string true "User identifier"
// @Success 200 {object} Inspection
// @Failure 404 {object} map[string]string
// @Router /sync/users/{identifier} [get]
func (h *Handler) HandleInspect(c *fiber.Ctx) error {
	identifier := c.Params("identifier")
	l := logger.WithRayID(h.logger, c)

	result, err := h.service.Inspect(c.UserContext(), identifier)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentifier) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("User inspection failed", zap.String("identifier", identifier), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if result == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found in source"})
	}
	return c.JSON(result)
}
