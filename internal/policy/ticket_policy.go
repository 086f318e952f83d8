// Package policy decides which ticket mutations a caller may perform.
//
// The rules are evaluated per update call against the caller's role and
// authorship. There is no stored transition table: any status may follow any
// other as long as the caller's role is allowed to target it.
package policy

import "github.com/helpdesk-labs/ticket-portal/internal/domain"

// Reason names why a mutation was rejected.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonStatusForbiddenForRole Reason = "status_forbidden_for_role"
	ReasonContentAuthorOnly      Reason = "content_author_only"
)

// Subject is the caller relative to one ticket.
type Subject struct {
	Role     domain.Role
	IsAuthor bool
}

// Changes is the proposed state of the ticket fields a caller may touch.
type Changes struct {
	Title       string
	Description domain.Optional[string]
	Status      domain.TicketStatus
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Message renders the rejection for API consumers.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonStatusForbiddenForRole:
		return "status not permitted for role"
	case ReasonContentAuthorOnly:
		return "only the author may edit title, description, category or priority"
	default:
		return ""
	}
}

var forbiddenTargets = map[domain.Role]map[domain.TicketStatus]struct{}{
	domain.RoleClient: {
		domain.TicketStatusInProgress: {},
		domain.TicketStatusResolved:   {},
	},
	domain.RoleAgent: {
		domain.TicketStatusClosed: {},
	},
}

// CanTargetStatus reports whether role may set a ticket to status.
func CanTargetStatus(role domain.Role, status domain.TicketStatus) bool {
	_, forbidden := forbiddenTargets[role][status]
	return !forbidden
}

// Evaluate applies the status rule first, then the content ownership rule.
// The status rule holds for authors and non-authors alike.
func Evaluate(subject Subject, current *domain.Ticket, proposed Changes) Decision {
	if !CanTargetStatus(subject.Role, proposed.Status) {
		return Decision{Reason: ReasonStatusForbiddenForRole}
	}
	if !subject.IsAuthor && contentChanged(current, proposed) {
		return Decision{Reason: ReasonContentAuthorOnly}
	}
	return Decision{Allowed: true}
}

func contentChanged(current *domain.Ticket, proposed Changes) bool {
	return current.Title != proposed.Title ||
		current.Description != proposed.Description ||
		current.Category != proposed.Category ||
		current.Priority != proposed.Priority
}
