package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// RatingsHandler serves customer satisfaction ratings.
type RatingsHandler struct {
	service *service.RatingService
}

// NewRatingsHandler constructs handler.
func NewRatingsHandler(ratingService *service.RatingService) *RatingsHandler {
	return &RatingsHandler{service: ratingService}
}

// Submit POST /ratings.
func (h *RatingsHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthenticated("user required")
	}
	var req dto.SubmitRatingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	rating, err := h.service.Submit(c.UserContext(), principal.User, service.RatingSubmitInput{
		TicketID: req.TicketID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRatingResponse(rating)})
}

// List GET /ratings.
func (h *RatingsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthenticated("user required")
	}

	filter := repository.RatingFilter{}
	if rating := parseInt(c.Query("rating"), 0); rating >= 1 && rating <= 5 {
		filter.Rating = &rating
	}
	if teamID := parseInt64(c.Query("team_id")); teamID != nil {
		filter.TeamID = teamID
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.Search = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 15)
	if page < 1 {
		page = 1
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	ratings, err := h.service.List(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.RatingResponse, 0, len(ratings))
	for i := range ratings {
		items = append(items, dto.NewRatingResponse(&ratings[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Statistics GET /ratings/statistics.
func (h *RatingsHandler) Statistics(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthenticated("user required")
	}
	stats, err := h.service.Statistics(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RatingStatsResponse{
		Total:   stats.Total,
		Average: stats.Average,
		ByStar:  stats.ByStar,
	}})
}
