package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-portal/internal/cache"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
	"github.com/helpdesk-labs/ticket-portal/internal/events"
	"github.com/helpdesk-labs/ticket-portal/internal/policy"
	"github.com/helpdesk-labs/ticket-portal/internal/repository"
	apperrors "github.com/helpdesk-labs/ticket-portal/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      repository.Store
	cache      cache.TicketCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service. Cache,
// Dispatcher and Logger are optional.
type TicketDependencies struct {
	Store      repository.Store
	Cache      cache.TicketCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description domain.Optional[string]
	Category    domain.TicketCategory
}

// TicketUpdateInput is the full replacement state requested by an update.
// An absent Agent keeps the current assignment.
type TicketUpdateInput struct {
	Title       string
	Description domain.Optional[string]
	Status      domain.TicketStatus
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	Agent       domain.Optional[string]
}

// TicketListFilter describes public listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Categories []domain.TicketCategory
	Priorities []domain.TicketPriority
	Author     *string
	Agent      *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		store:      deps.Store,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// Create files a new ticket authored by requester.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput, requester string) (domain.TicketView, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		author, err := tx.Accounts().GetByUsername(ctx, requester)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewAuthorNotFound()
		}
		if err != nil {
			return err
		}

		ticket = domain.NewTicket(input.Title, input.Description, input.Category, *author, s.timestamp())
		if fieldErrs := ticket.Validate(); fieldErrs != nil {
			return apperrors.NewValidationError("ticket validation failed", fieldErrs)
		}
		return tx.Tickets().Create(ctx, ticket)
	})
	if err != nil {
		return domain.TicketView{}, err
	}

	view := domain.ProjectTicket(ticket)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    accountActor(ticket.Author),
		Payload:  events.TicketSnapshotPayload{Ticket: view},
	})
	return view, nil
}

// FindAll lists tickets matching filter. The zero filter returns every ticket.
func (s *TicketService) FindAll(ctx context.Context, filter TicketListFilter) ([]domain.TicketView, error) {
	tickets, err := s.store.Tickets().List(ctx, repository.TicketFilter{
		Statuses:       filter.Statuses,
		Categories:     filter.Categories,
		Priorities:     filter.Priorities,
		AuthorUsername: filter.Author,
		AgentUsername:  filter.Agent,
		SearchTerm:     filter.SearchTerm,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	})
	if err != nil {
		return nil, err
	}
	views := make([]domain.TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, domain.ProjectTicket(&tickets[i]))
	}
	return views, nil
}

// FindByID returns a single ticket, served from the cache when possible.
func (s *TicketService) FindByID(ctx context.Context, id int64) (domain.TicketView, error) {
	if s.cache != nil {
		if view, ok := s.cache.Get(ctx, id); ok {
			return *view, nil
		}
	}

	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return domain.TicketView{}, ticketLookupError(err, id)
	}
	view := domain.ProjectTicket(ticket)
	if s.cache != nil {
		s.cache.Set(ctx, view)
	}
	return view, nil
}

// ListHistory returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, id int64) ([]domain.TicketHistory, error) {
	if _, err := s.store.Tickets().GetByID(ctx, id); err != nil {
		return nil, ticketLookupError(err, id)
	}
	return s.store.History().ListByTicket(ctx, id)
}

// UpdateByID replaces the ticket state on behalf of principal. Authorization,
// agent resolution and validation all run before any write; a failure leaves
// the ticket untouched.
func (s *TicketService) UpdateByID(ctx context.Context, id int64, input TicketUpdateInput, principal domain.Principal) (domain.TicketView, error) {
	var before, after *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Tickets().GetByIDForUpdate(ctx, id)
		if err != nil {
			return ticketLookupError(err, id)
		}

		decision := policy.Evaluate(
			policy.Subject{Role: principal.Role, IsAuthor: current.IsAuthoredBy(principal.Username)},
			current,
			policy.Changes{
				Title:       input.Title,
				Description: input.Description,
				Status:      input.Status,
				Category:    input.Category,
				Priority:    input.Priority,
			},
		)
		if !decision.Allowed {
			return apperrors.NewForbidden(decision.Message())
		}

		next := *current
		next.Title = input.Title
		next.Description = input.Description
		next.Status = input.Status
		next.Category = input.Category
		next.Priority = input.Priority

		if username, ok := input.Agent.Get(); ok {
			agent, err := tx.Accounts().GetByUsername(ctx, username)
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewAgentNotFound()
			}
			if err != nil {
				return err
			}
			next.Agent = domain.Some(*agent)
		}

		if fieldErrs := next.Validate(); fieldErrs != nil {
			return apperrors.NewValidationError("ticket validation failed", fieldErrs)
		}

		next.UpdatedAt = s.nextUpdatedAt(current.UpdatedAt)
		if err := tx.Tickets().Update(ctx, &next); err != nil {
			return ticketLookupError(err, id)
		}
		for _, entry := range domain.DiffTickets(current, &next, principal.Username) {
			entry := entry
			if err := tx.History().Create(ctx, &entry); err != nil {
				return err
			}
		}
		before, after = current, &next
		return nil
	})
	if err != nil {
		return domain.TicketView{}, err
	}

	view := domain.ProjectTicket(after)
	s.refreshCache(ctx, view)
	s.publishUpdateEvents(ctx, before, after, view, principal)
	return view, nil
}

// DeleteByID removes a ticket. Only its author may delete it.
func (s *TicketService) DeleteByID(ctx context.Context, id int64, requester string) (domain.TicketView, error) {
	var view domain.TicketView
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetByIDForUpdate(ctx, id)
		if err != nil {
			return ticketLookupError(err, id)
		}
		if !ticket.IsAuthoredBy(requester) {
			return apperrors.NewForbidden("only the author may delete a ticket")
		}
		if err := tx.Tickets().Delete(ctx, id); err != nil {
			return ticketLookupError(err, id)
		}
		view = domain.ProjectTicket(ticket)
		return nil
	})
	if err != nil {
		return domain.TicketView{}, err
	}

	s.invalidate(ctx, id)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Actor:    events.Actor{Username: requester},
		Payload:  events.TicketSnapshotPayload{Ticket: view},
	})
	return view, nil
}

func (s *TicketService) publishUpdateEvents(ctx context.Context, before, after *domain.Ticket, view domain.TicketView, principal domain.Principal) {
	actor := events.Actor{Username: principal.Username, Role: principal.Role}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: after.ID,
		Actor:    actor,
		Payload:  events.TicketSnapshotPayload{Ticket: view},
	})
	if before.Status != after.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: after.ID,
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: after.Status,
			},
		})
	}
	oldAgent, newAgent := agentName(before), agentName(after)
	if !samePtr(oldAgent, newAgent) {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: after.ID,
			Actor:    actor,
			Payload:  events.TicketAssignedPayload{OldAgent: oldAgent, NewAgent: newAgent},
		})
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// refreshCache writes the committed view. The cache keeps whichever view is
// newest, so a read that loaded the row before this commit cannot overwrite it.
func (s *TicketService) refreshCache(ctx context.Context, view domain.TicketView) {
	if s.cache != nil {
		s.cache.Set(ctx, view)
	}
}

func (s *TicketService) invalidate(ctx context.Context, id int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

// timestamp truncates to the microsecond precision both stores keep.
func (s *TicketService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TicketService) nextUpdatedAt(previous time.Time) time.Time {
	ts := s.timestamp()
	if !ts.After(previous) {
		ts = previous.Add(time.Microsecond)
	}
	return ts
}

func ticketLookupError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return err
}

func accountActor(account domain.Account) events.Actor {
	return events.Actor{Username: account.Username, Role: account.Role}
}

func agentName(t *domain.Ticket) *string {
	if agent, ok := t.Agent.Get(); ok {
		name := agent.Username
		return &name
	}
	return nil
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
