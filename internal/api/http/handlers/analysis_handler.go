package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AnalysisHandler serves the ticket analysis dashboard.
type AnalysisHandler struct {
	service *service.AnalyticsService
	metrics *observability.Metrics
}

// NewAnalysisHandler constructs handler.
func NewAnalysisHandler(analyticsService *service.AnalyticsService, metrics *observability.Metrics) *AnalysisHandler {
	return &AnalysisHandler{service: analyticsService, metrics: metrics}
}

// Overview GET /analysis/tickets.
func (h *AnalysisHandler) Overview(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthenticated("user required")
	}
	overview, err := h.service.Overview(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": overview})
}

// Metrics GET /analysis/metrics.
func (h *AnalysisHandler) Metrics(c *fiber.Ctx) error {
	requests, errCounts, denials := h.metrics.Snapshot()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"requests":       requests,
		"errors":         errCounts,
		"access_denials": denials,
	}})
}
