package domain

import "time"

// TicketView is the external representation of a ticket with account
// references flattened to usernames.
type TicketView struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Status      TicketStatus   `json:"status"`
	Category    TicketCategory `json:"category"`
	Priority    TicketPriority `json:"priority"`
	Author      string         `json:"author"`
	Agent       *string        `json:"agent,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ProjectTicket renders a stored ticket as a TicketView.
func ProjectTicket(t *Ticket) TicketView {
	view := TicketView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description.Ptr(),
		Status:      t.Status,
		Category:    t.Category,
		Priority:    t.Priority,
		Author:      t.Author.Username,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if agent, ok := t.Agent.Get(); ok {
		username := agent.Username
		view.Agent = &username
	}
	return view
}
