package policy

import (
	"testing"

	"github.com/helpdesk-labs/ticket-portal/internal/domain"
)

func sampleTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          1,
		Title:       "Ticket 1",
		Description: domain.Some("Description 1"),
		Status:      domain.TicketStatusOpen,
		Category:    domain.TicketCategoryBug,
		Priority:    domain.TicketPriorityMedium,
		Author:      domain.Account{Username: "noobMaster", Role: domain.RoleClient},
	}
}

func unchanged(t *domain.Ticket) Changes {
	return Changes{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Category:    t.Category,
		Priority:    t.Priority,
	}
}

func TestCanTargetStatus(t *testing.T) {
	cases := []struct {
		role   domain.Role
		status domain.TicketStatus
		want   bool
	}{
		{domain.RoleClient, domain.TicketStatusOpen, true},
		{domain.RoleClient, domain.TicketStatusInProgress, false},
		{domain.RoleClient, domain.TicketStatusResolved, false},
		{domain.RoleClient, domain.TicketStatusClosed, true},
		{domain.RoleAgent, domain.TicketStatusOpen, true},
		{domain.RoleAgent, domain.TicketStatusInProgress, true},
		{domain.RoleAgent, domain.TicketStatusResolved, true},
		{domain.RoleAgent, domain.TicketStatusClosed, false},
	}
	for _, tc := range cases {
		if got := CanTargetStatus(tc.role, tc.status); got != tc.want {
			t.Errorf("CanTargetStatus(%s, %s) = %v, want %v", tc.role, tc.status, got, tc.want)
		}
	}
}

func TestEvaluate_ClientAuthorStatus(t *testing.T) {
	ticket := sampleTicket()
	subject := Subject{Role: domain.RoleClient, IsAuthor: true}

	for _, status := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved} {
		changes := unchanged(ticket)
		changes.Status = status
		d := Evaluate(subject, ticket, changes)
		if d.Allowed || d.Reason != ReasonStatusForbiddenForRole {
			t.Errorf("expected %s to be forbidden for client author, got %+v", status, d)
		}
	}
	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusClosed} {
		changes := unchanged(ticket)
		changes.Status = status
		if d := Evaluate(subject, ticket, changes); !d.Allowed {
			t.Errorf("expected %s to be allowed for client author, got %+v", status, d)
		}
	}
}

func TestEvaluate_AgentCannotClose(t *testing.T) {
	ticket := sampleTicket()
	changes := unchanged(ticket)
	changes.Status = domain.TicketStatusClosed

	for _, isAuthor := range []bool{true, false} {
		d := Evaluate(Subject{Role: domain.RoleAgent, IsAuthor: isAuthor}, ticket, changes)
		if d.Allowed || d.Reason != ReasonStatusForbiddenForRole {
			t.Errorf("expected agent close to be forbidden (author=%v), got %+v", isAuthor, d)
		}
	}
}

func TestEvaluate_NonAuthorStatusOnly(t *testing.T) {
	ticket := sampleTicket()
	subject := Subject{Role: domain.RoleAgent}

	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved} {
		changes := unchanged(ticket)
		changes.Status = status
		if d := Evaluate(subject, ticket, changes); !d.Allowed {
			t.Errorf("expected agent status change to %s to be allowed, got %+v", status, d)
		}
	}
}

func TestEvaluate_NonAuthorContentEdits(t *testing.T) {
	ticket := sampleTicket()

	edits := map[string]func(*Changes){
		"title":             func(c *Changes) { c.Title = "Another title" },
		"description":       func(c *Changes) { c.Description = domain.Some("Other") },
		"description unset": func(c *Changes) { c.Description = domain.None[string]() },
		"category":          func(c *Changes) { c.Category = domain.TicketCategoryAccount },
		"priority":          func(c *Changes) { c.Priority = domain.TicketPriorityHigh },
	}

	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleClient} {
		for name, edit := range edits {
			changes := unchanged(ticket)
			edit(&changes)
			d := Evaluate(Subject{Role: role}, ticket, changes)
			if d.Allowed || d.Reason != ReasonContentAuthorOnly {
				t.Errorf("%s: expected non-author %s edit to be forbidden, got %+v", role, name, d)
			}
		}
	}
}

func TestEvaluate_AuthorContentEdits(t *testing.T) {
	ticket := sampleTicket()
	changes := Changes{
		Title:       "New Ticket 1",
		Description: domain.None[string](),
		Status:      domain.TicketStatusClosed,
		Category:    domain.TicketCategoryTechnicalIssue,
		Priority:    domain.TicketPriorityHigh,
	}
	if d := Evaluate(Subject{Role: domain.RoleClient, IsAuthor: true}, ticket, changes); !d.Allowed {
		t.Fatalf("expected author edit to be allowed, got %+v", d)
	}
}

func TestEvaluate_StatusRuleWinsOverContentRule(t *testing.T) {
	ticket := sampleTicket()
	changes := unchanged(ticket)
	changes.Title = "Something else"
	changes.Status = domain.TicketStatusClosed

	d := Evaluate(Subject{Role: domain.RoleAgent}, ticket, changes)
	if d.Reason != ReasonStatusForbiddenForRole {
		t.Errorf("expected status reason first, got %q", d.Reason)
	}
	if d.Message() == "" {
		t.Error("expected a rejection message")
	}
}
