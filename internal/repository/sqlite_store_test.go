package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-portal/internal/config"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
	"github.com/helpdesk-labs/ticket-portal/internal/persistence"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := persistence.OpenSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func mustAccount(t *testing.T, s Store, username string, role domain.Role) *domain.Account {
	t.Helper()
	account := &domain.Account{Username: username, PasswordHash: "hash", Role: role}
	if err := s.Accounts().Create(context.Background(), account); err != nil {
		t.Fatalf("create account %s: %v", username, err)
	}
	return account
}

func TestAccounts_CreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := mustAccount(t, s, "noobMaster", domain.RoleClient)

	got, err := s.Accounts().GetByUsername(ctx, "noobMaster")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID || got.Role != domain.RoleClient {
		t.Errorf("unexpected account %+v", got)
	}

	if _, err := s.Accounts().GetByUsername(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	dup := &domain.Account{Username: "noobMaster", PasswordHash: "x", Role: domain.RoleAgent}
	if err := s.Accounts().Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestTickets_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := mustAccount(t, s, "noobMaster", domain.RoleClient)
	agent := mustAccount(t, s, "agent007", domain.RoleAgent)

	now := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)
	ticket := domain.NewTicket("Ticket 1", domain.None[string](), domain.TicketCategoryBug, *author, now)
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := s.Tickets().GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Author.Username != "noobMaster" {
		t.Errorf("expected author noobMaster, got %q", got.Author.Username)
	}
	if got.Agent.IsSet() {
		t.Error("expected no agent")
	}
	if got.Description.IsSet() {
		t.Error("expected no description")
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Errorf("timestamps not preserved: %s %s", got.CreatedAt, got.UpdatedAt)
	}

	got.Agent = domain.Some(*agent)
	got.Description = domain.Some("now described")
	got.Status = domain.TicketStatusInProgress
	got.UpdatedAt = now.Add(time.Minute)
	if err := s.Tickets().Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	again, _ := s.Tickets().GetByID(ctx, ticket.ID)
	if a, ok := again.Agent.Get(); !ok || a.Username != "agent007" {
		t.Errorf("expected agent007, got %+v", again.Agent)
	}
	if d, _ := again.Description.Get(); d != "now described" {
		t.Errorf("expected description, got %q", d)
	}
	if again.Status != domain.TicketStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", again.Status)
	}
}

func TestTickets_DeleteAndNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := mustAccount(t, s, "noobMaster", domain.RoleClient)

	ticket := domain.NewTicket("Ticket 1", domain.Some("d"), domain.TicketCategoryBug, *author, time.Now())
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Tickets().Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Tickets().GetByID(ctx, ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Tickets().Delete(ctx, ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := s.Tickets().Update(ctx, ticket); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestTickets_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := mustAccount(t, s, "noobMaster", domain.RoleClient)
	other := mustAccount(t, s, "otherClient", domain.RoleClient)
	agent := mustAccount(t, s, "agent007", domain.RoleAgent)

	create := func(title string, who *domain.Account, category domain.TicketCategory) *domain.Ticket {
		ticket := domain.NewTicket(title, domain.None[string](), category, *who, time.Now())
		if err := s.Tickets().Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
		return ticket
	}
	create("Login broken", author, domain.TicketCategoryAccount)
	second := create("Dark mode please", other, domain.TicketCategoryFeatureRequest)
	create("Crash on save", author, domain.TicketCategoryBug)

	second.Agent = domain.Some(*agent)
	second.Status = domain.TicketStatusInProgress
	if err := s.Tickets().Update(ctx, second); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, err := s.Tickets().List(ctx, TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(all))
	}
	if all[0].ID > all[1].ID || all[1].ID > all[2].ID {
		t.Error("expected tickets ordered by id")
	}

	authorName := "noobMaster"
	byAuthor, _ := s.Tickets().List(ctx, TicketFilter{AuthorUsername: &authorName})
	if len(byAuthor) != 2 {
		t.Errorf("expected 2 tickets by author, got %d", len(byAuthor))
	}

	agentName := "agent007"
	byAgent, _ := s.Tickets().List(ctx, TicketFilter{AgentUsername: &agentName})
	if len(byAgent) != 1 || byAgent[0].ID != second.ID {
		t.Errorf("expected agent ticket, got %v", byAgent)
	}

	inProgress, _ := s.Tickets().List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusInProgress}})
	if len(inProgress) != 1 {
		t.Errorf("expected 1 in-progress ticket, got %d", len(inProgress))
	}

	term := "CRASH"
	search, _ := s.Tickets().List(ctx, TicketFilter{SearchTerm: &term})
	if len(search) != 1 || search[0].Title != "Crash on save" {
		t.Errorf("expected search hit, got %v", search)
	}

	paged, _ := s.Tickets().List(ctx, TicketFilter{Limit: 2, Offset: 2})
	if len(paged) != 1 {
		t.Errorf("expected 1 ticket on second page, got %d", len(paged))
	}
}

func TestWithinTx_RollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := mustAccount(t, s, "noobMaster", domain.RoleClient)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Store) error {
		ticket := domain.NewTicket("Ticket 1", domain.None[string](), domain.TicketCategoryBug, *author, time.Now())
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	all, _ := s.Tickets().List(ctx, TicketFilter{})
	if len(all) != 0 {
		t.Errorf("expected rollback to discard ticket, got %d", len(all))
	}
}

func TestHistory_CascadesOnDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := mustAccount(t, s, "noobMaster", domain.RoleClient)

	ticket := domain.NewTicket("Ticket 1", domain.None[string](), domain.TicketCategoryBug, *author, time.Now())
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}
	entry := &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  "noobMaster",
		ChangeType: domain.ChangeTypeStatus,
		OldValue:   map[string]any{"status": "OPEN"},
		NewValue:   map[string]any{"status": "CLOSED"},
		CreatedAt:  time.Now(),
	}
	if err := s.History().Create(ctx, entry); err != nil {
		t.Fatalf("create history: %v", err)
	}

	entries, err := s.History().ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].NewValue["status"] != "CLOSED" {
		t.Fatalf("unexpected history %+v", entries)
	}

	if err := s.Tickets().Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries, _ = s.History().ListByTicket(ctx, ticket.ID)
	if len(entries) != 0 {
		t.Errorf("expected history to cascade, got %d entries", len(entries))
	}
}

func TestHistory_ListsOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := mustAccount(t, s, "noobMaster", domain.RoleClient)

	ticket := domain.NewTicket("Ticket 1", domain.None[string](), domain.TicketCategoryBug, *author, time.Now())
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// Inserted out of order, with fractional parts of different widths.
	stamps := []time.Time{
		base.Add(time.Second),
		base.Add(123456 * time.Microsecond),
		base.Add(100 * time.Millisecond),
		base,
	}
	for _, ts := range stamps {
		entry := &domain.TicketHistory{
			TicketID:   ticket.ID,
			ChangedBy:  "noobMaster",
			ChangeType: domain.ChangeTypeStatus,
			OldValue:   map[string]any{"status": "OPEN"},
			NewValue:   map[string]any{"status": "CLOSED"},
			CreatedAt:  ts,
		}
		if err := s.History().Create(ctx, entry); err != nil {
			t.Fatalf("create history: %v", err)
		}
	}

	entries, err := s.History().ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	want := []time.Time{base, base.Add(100 * time.Millisecond), base.Add(123456 * time.Microsecond), base.Add(time.Second)}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if !entries[i].CreatedAt.Equal(want[i]) {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], entries[i].CreatedAt)
		}
	}
}

func TestTickets_SearchEscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := mustAccount(t, s, "noobMaster", domain.RoleClient)

	for _, title := range []string{"Disk at 100% usage", "Disk at 1000 usage", "snake_case field", "snakeXcase field"} {
		ticket := domain.NewTicket(title, domain.None[string](), domain.TicketCategoryBug, *author, time.Now())
		if err := s.Tickets().Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	cases := []struct {
		term string
		want int
	}{
		{"_", 1},
		{"100%", 1},
		{"%", 1},
		{"snake_case", 1},
		{`\`, 0},
		{"disk", 2},
	}
	for _, tc := range cases {
		term := tc.term
		got, err := s.Tickets().List(ctx, TicketFilter{SearchTerm: &term})
		if err != nil {
			t.Fatalf("search %q: %v", tc.term, err)
		}
		if len(got) != tc.want {
			t.Errorf("search %q: expected %d tickets, got %d", tc.term, tc.want, len(got))
		}
	}
}

func TestSearchPattern(t *testing.T) {
	cases := map[string]string{
		" Crash ":    "%crash%",
		"100%":       `%100\%%`,
		"snake_case": `%snake\_case%`,
		`a\b`:        `%a\\b%`,
	}
	for in, want := range cases {
		if got := searchPattern(in); got != want {
			t.Errorf("searchPattern(%q): expected %q, got %q", in, want, got)
		}
	}
}
