package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAgent    TicketChangeType = "AGENT_CHANGE"
	ChangeTypePriority TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeCategory TicketChangeType = "CATEGORY_CHANGE"
	ChangeTypeContent  TicketChangeType = "CONTENT_CHANGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         int64
	TicketID   int64
	ChangedBy  string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}

// DiffTickets lists the audit entries produced by moving from before to after.
func DiffTickets(before, after *Ticket, changedBy string) []TicketHistory {
	var entries []TicketHistory
	add := func(kind TicketChangeType, key string, oldVal, newVal any) {
		entries = append(entries, TicketHistory{
			TicketID:   after.ID,
			ChangedBy:  changedBy,
			ChangeType: kind,
			OldValue:   map[string]any{key: oldVal},
			NewValue:   map[string]any{key: newVal},
			CreatedAt:  after.UpdatedAt,
		})
	}

	if before.Status != after.Status {
		add(ChangeTypeStatus, "status", string(before.Status), string(after.Status))
	}
	if before.Priority != after.Priority {
		add(ChangeTypePriority, "priority", string(before.Priority), string(after.Priority))
	}
	if before.Category != after.Category {
		add(ChangeTypeCategory, "category", string(before.Category), string(after.Category))
	}
	oldAgent, newAgent := agentUsername(before), agentUsername(after)
	if oldAgent != newAgent {
		add(ChangeTypeAgent, "agent", nullable(oldAgent), nullable(newAgent))
	}
	if before.Title != after.Title || before.Description != after.Description {
		entries = append(entries, TicketHistory{
			TicketID:   after.ID,
			ChangedBy:  changedBy,
			ChangeType: ChangeTypeContent,
			OldValue:   map[string]any{"title": before.Title, "description": before.Description.Ptr()},
			NewValue:   map[string]any{"title": after.Title, "description": after.Description.Ptr()},
			CreatedAt:  after.UpdatedAt,
		})
	}
	return entries
}

func agentUsername(t *Ticket) string {
	if agent, ok := t.Agent.Get(); ok {
		return agent.Username
	}
	return ""
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
