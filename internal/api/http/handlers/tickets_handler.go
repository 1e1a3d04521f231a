package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler serves the three ticket surfaces. Each route binds a surface
// at registration time; the policy work happens in the service.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// List GET /tickets/{surface}.
func (h *TicketsHandler) List(surface policy.Surface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthenticated("user required")
		}
		filter := parseTicketQuery(c)
		tickets, err := h.service.List(c.UserContext(), principal.User, surface, filter)
		if err != nil {
			return err
		}
		items := make([]dto.TicketResponse, 0, len(tickets))
		for i := range tickets {
			items = append(items, dto.NewTicketResponse(&tickets[i]))
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthenticated("user required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), principal.User, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Create POST /tickets/{surface}.
func (h *TicketsHandler) Create(surface policy.Surface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthenticated("user required")
		}
		var req dto.CreateTicketRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if req.CustomerID == 0 {
			return apperrors.NewValidationError("customer_id required", nil)
		}

		input := service.TicketCreateInput{
			Subject:     req.Subject,
			Description: req.Description,
			CustomerID:  req.CustomerID,
			TeamID:      req.TeamID,
			EmployeeID:  req.EmployeeID,
			Priority:    req.Priority,
			Stage:       req.Stage,
			Deadline:    req.Deadline,
			TagIDs:      req.TagIDs,
		}
		ticket, err := h.service.Create(c.UserContext(), principal.User, surface, input)
		if err != nil {
			return err
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
	}
}

// Update PATCH /tickets/{surface}/:id.
func (h *TicketsHandler) Update(surface policy.Surface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthenticated("user required")
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var req dto.UpdateTicketRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}

		input := service.TicketUpdateInput{
			Subject:       req.Subject,
			Description:   req.Description,
			TeamID:        req.TeamID,
			ClearTeam:     req.ClearTeam,
			EmployeeID:    req.EmployeeID,
			ClearAssignee: req.ClearAssignee,
			Priority:      req.Priority,
			Stage:         req.Stage,
			Deadline:      req.Deadline,
			TagIDs:        req.TagIDs,
		}
		ticket, err := h.service.Update(c.UserContext(), principal.User, surface, id, input)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
	}
}

// Delete DELETE /tickets/{surface}/:id.
func (h *TicketsHandler) Delete(surface policy.Surface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthenticated("user required")
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := h.service.Delete(c.UserContext(), principal.User, surface, id); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	}
}

// BulkUpdate POST /tickets/{surface}/bulk-update.
func (h *TicketsHandler) BulkUpdate(surface policy.Surface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthenticated("user required")
		}
		var req dto.BulkUpdateTicketsRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if len(req.IDs) == 0 {
			return apperrors.NewValidationError("ids required", nil)
		}

		patch := service.TicketBulkPatch{
			Stage:      req.Stage,
			Priority:   req.Priority,
			TeamID:     req.TeamID,
			EmployeeID: req.EmployeeID,
		}
		updated, err := h.service.BulkUpdate(c.UserContext(), principal.User, surface, req.IDs, patch)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.BulkResultResponse{
			Requested: len(req.IDs),
			Affected:  updated,
			Skipped:   len(req.IDs) - updated,
		}})
	}
}

// BulkDelete POST /tickets/{surface}/bulk-delete.
func (h *TicketsHandler) BulkDelete(surface policy.Surface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthenticated("user required")
		}
		var req dto.BulkDeleteTicketsRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if len(req.IDs) == 0 {
			return apperrors.NewValidationError("ids required", nil)
		}

		deleted, err := h.service.BulkDelete(c.UserContext(), principal.User, surface, req.IDs)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.BulkResultResponse{
			Requested: len(req.IDs),
			Affected:  deleted,
			Skipped:   len(req.IDs) - deleted,
		}})
	}
}

// ListTeams GET /teams.
func (h *TicketsHandler) ListTeams(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthenticated("user required")
	}
	summaries, err := h.service.ListTeams(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, dto.TeamResponse{
			ID:          summary.Team.ID,
			Name:        summary.Team.Name,
			Description: summary.Team.Description,
			TicketCount: summary.TicketCount,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListTags GET /tags.
func (h *TicketsHandler) ListTags(c *fiber.Ctx) error {
	tags, err := h.service.ListTags(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TagResponse, 0, len(tags))
	for _, tag := range tags {
		items = append(items, dto.TagResponse{ID: tag.ID, Name: tag.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.Search = &search
	}
	if stageStr := c.Query("stage"); stageStr != "" {
		stage := domain.TicketStage(stageStr)
		filter.Stage = &stage
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.TicketPriority(priorityStr)
		filter.Priority = &priority
	}
	if teamID := parseInt64(c.Query("team_id")); teamID != nil {
		filter.TeamID = teamID
	}
	if assigneeID := parseInt64(c.Query("assignee_id")); assigneeID != nil {
		filter.AssigneeID = assigneeID
	}
	if c.Query("unassigned") == "true" {
		filter.Unassigned = true
	}
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))
	filter.DeadlineFrom = parseTime(c.Query("deadline_from"))
	filter.DeadlineTo = parseTime(c.Query("deadline_to"))

	filter.SortField = c.Query("sort")
	filter.SortDesc = strings.EqualFold(c.Query("order"), "desc")

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 15)
	if page < 1 {
		page = 1
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}

func parseInt(val string, fallback int) int {
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(val string) *int64 {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &parsed
}
