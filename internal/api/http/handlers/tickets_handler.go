package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticket-portal/internal/api/dto"
	"github.com/helpdesk-labs/ticket-portal/internal/auth"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
	"github.com/helpdesk-labs/ticket-portal/internal/service"
	apperrors "github.com/helpdesk-labs/ticket-portal/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	view, err := h.service.Create(c.UserContext(), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}, principal.Username)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": view})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query := parseTicketListQuery(c)
	views, err := h.service.FindAll(c.UserContext(), service.TicketListFilter{
		Statuses:   query.Statuses,
		Categories: query.Categories,
		Priorities: query.Priorities,
		Author:     query.Author,
		Agent:      query.Agent,
		SearchTerm: query.Search,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": views})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	view, err := h.service.FindByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(history))
	for _, entry := range history {
		items = append(items, dto.NewTicketHistoryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	view, err := h.service.UpdateByID(c.UserContext(), id, service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Category:    req.Category,
		Priority:    req.Priority,
		Agent:       req.Agent,
	}, *principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	view, err := h.service.DeleteByID(c.UserContext(), id, principal.Username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// ticketID treats a malformed id like an unknown one.
func ticketID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound("ticket", map[string]any{"id": raw})
	}
	return id, nil
}

func parseTicketListQuery(c *fiber.Ctx) dto.TicketListQuery {
	query := dto.TicketListQuery{}
	for _, part := range splitList(c.Query("status")) {
		query.Statuses = append(query.Statuses, domain.TicketStatus(part))
	}
	for _, part := range splitList(c.Query("category")) {
		query.Categories = append(query.Categories, domain.TicketCategory(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		query.Priorities = append(query.Priorities, domain.TicketPriority(part))
	}
	query.Author = optionalQuery(c, "author")
	query.Agent = optionalQuery(c, "agent")
	query.Search = optionalQuery(c, "q")

	// Without page_size every ticket is returned.
	if pageSize := parseInt(c.Query("page_size"), 0); pageSize > 0 {
		page := parseInt(c.Query("page"), 1)
		query.Limit = pageSize
		query.Offset = (page - 1) * pageSize
	}
	return query
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, strings.ToUpper(part))
		}
	}
	return parts
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
