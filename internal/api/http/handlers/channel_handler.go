package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ChannelHandler authorizes joining per-ticket realtime channels.
type ChannelHandler struct {
	service *service.TicketService
}

// NewChannelHandler constructs handler.
func NewChannelHandler(ticketService *service.TicketService) *ChannelHandler {
	return &ChannelHandler{service: ticketService}
}

// Authorize POST /channels/ticket/:id/auth.
func (h *ChannelHandler) Authorize(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthenticated("user required")
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	allowed, err := h.service.AuthorizeChannel(c.UserContext(), principal.User, ticketID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.NewForbidden("channel not accessible")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"authorized": true}})
}
