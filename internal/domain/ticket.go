package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketCategory classifies the request.
type TicketCategory string

const (
	TicketCategoryBug            TicketCategory = "BUG"
	TicketCategoryFeatureRequest TicketCategory = "FEATURE_REQUEST"
	TicketCategoryAccount        TicketCategory = "ACCOUNT"
	TicketCategoryTechnicalIssue TicketCategory = "TECHNICAL_ISSUE"
)

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	switch c {
	case TicketCategoryBug, TicketCategoryFeatureRequest, TicketCategoryAccount, TicketCategoryTechnicalIssue:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

const (
	TitleMinLength       = 5
	TitleMaxLength       = 100
	DescriptionMaxLength = 1000
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	Title       string
	Description Optional[string]
	Status      TicketStatus
	Category    TicketCategory
	Priority    TicketPriority
	Author      Account
	Agent       Optional[Account]
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTicket builds an unsaved ticket with lifecycle defaults applied.
func NewTicket(title string, description Optional[string], category TicketCategory, author Account, now time.Time) *Ticket {
	return &Ticket{
		Title:       title,
		Description: description,
		Status:      TicketStatusOpen,
		Category:    category,
		Priority:    TicketPriorityMedium,
		Author:      author,
		Agent:       None[Account](),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsAuthoredBy reports whether username owns the ticket.
func (t *Ticket) IsAuthoredBy(username string) bool {
	return t.Author.Username == username
}

// FieldErrors maps a field name to its constraint message.
type FieldErrors map[string]string

// Validate checks field constraints and returns nil when the ticket is persistable.
func (t *Ticket) Validate() FieldErrors {
	errs := FieldErrors{}

	switch n := utf8.RuneCountInString(t.Title); {
	case t.Title == "":
		errs["title"] = "must not be empty"
	case n < TitleMinLength || n > TitleMaxLength:
		errs["title"] = fmt.Sprintf("size must be between %d and %d", TitleMinLength, TitleMaxLength)
	}
	if desc, ok := t.Description.Get(); ok && utf8.RuneCountInString(desc) > DescriptionMaxLength {
		errs["description"] = fmt.Sprintf("size must be between 0 and %d", DescriptionMaxLength)
	}
	if !t.Status.Valid() {
		errs["status"] = enumMessage(t.Status == "", "OPEN, IN_PROGRESS, RESOLVED, CLOSED")
	}
	if !t.Category.Valid() {
		errs["category"] = enumMessage(t.Category == "", "BUG, FEATURE_REQUEST, ACCOUNT, TECHNICAL_ISSUE")
	}
	if !t.Priority.Valid() {
		errs["priority"] = enumMessage(t.Priority == "", "LOW, MEDIUM, HIGH")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func enumMessage(empty bool, allowed string) string {
	if empty {
		return "must not be null"
	}
	return "must be one of " + allowed
}
