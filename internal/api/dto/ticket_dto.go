package dto

import (
	"time"

	"github.com/helpdesk-labs/ticket-portal/internal/domain"
)

// CreateTicketRequest payload. Status, priority and agent are not accepted
// on creation.
type CreateTicketRequest struct {
	Title       string                  `json:"title"`
	Description domain.Optional[string] `json:"description"`
	Category    domain.TicketCategory   `json:"category"`
}

// UpdateTicketRequest is a full replacement of the ticket state. A missing
// agent keeps the current assignment.
type UpdateTicketRequest struct {
	Title       string                  `json:"title"`
	Description domain.Optional[string] `json:"description"`
	Status      domain.TicketStatus     `json:"status"`
	Category    domain.TicketCategory   `json:"category"`
	Priority    domain.TicketPriority   `json:"priority"`
	Agent       domain.Optional[string] `json:"agent"`
}

// TicketListQuery captures query filters for GET /tickets.
type TicketListQuery struct {
	Statuses   []domain.TicketStatus
	Categories []domain.TicketCategory
	Priorities []domain.TicketPriority
	Author     *string
	Agent      *string
	Search     *string
	Limit      int
	Offset     int
}

// TicketHistoryResponse represents one audit entry.
type TicketHistoryResponse struct {
	ID         int64                   `json:"id"`
	ChangedBy  string                  `json:"changed_by"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}

// NewTicketHistoryResponse maps a domain entry to its response shape.
func NewTicketHistoryResponse(h domain.TicketHistory) TicketHistoryResponse {
	return TicketHistoryResponse{
		ID:         h.ID,
		ChangedBy:  h.ChangedBy,
		ChangeType: h.ChangeType,
		OldValue:   h.OldValue,
		NewValue:   h.NewValue,
		CreatedAt:  h.CreatedAt,
	}
}
