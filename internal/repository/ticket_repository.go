package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-labs/ticket-portal/internal/domain"
)

// TicketFilter narrows ticket listings. The zero value matches every ticket.
type TicketFilter struct {
	Statuses       []domain.TicketStatus
	Categories     []domain.TicketCategory
	Priorities     []domain.TicketPriority
	AuthorUsername *string
	AgentUsername  *string
	SearchTerm     *string
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetByIDForUpdate loads the ticket and holds its row lock until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db pgQuerier
}

const ticketSelect = `
        SELECT t.id, t.title, t.description, t.status, t.category, t.priority,
               au.id, au.username, au.role,
               ag.id, ag.username, ag.role,
               t.created_at, t.updated_at
        FROM tickets t
        JOIN accounts au ON au.id = t.author_id
        LEFT JOIN accounts ag ON ag.id = t.agent_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, category, priority, author_id, agent_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description.Ptr(),
		ticket.Status,
		ticket.Category,
		ticket.Priority,
		ticket.Author.ID,
		agentID(ticket),
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
	return translatePgError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, category=$4, priority=$5,
            agent_id=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Title,
		ticket.Description.Ptr(),
		ticket.Status,
		ticket.Category,
		ticket.Priority,
		agentID(ticket),
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect+` WHERE t.id=$1`, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect+` WHERE t.id=$1 FOR UPDATE OF t`, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translatePgError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	placeholder := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		ph := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			ph[i] = placeholder(status)
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(ph, ",")))
	}
	if len(filter.Categories) > 0 {
		ph := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			ph[i] = placeholder(category)
		}
		clauses = append(clauses, fmt.Sprintf("t.category IN (%s)", strings.Join(ph, ",")))
	}
	if len(filter.Priorities) > 0 {
		ph := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			ph[i] = placeholder(pr)
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(ph, ",")))
	}
	if filter.AuthorUsername != nil {
		clauses = append(clauses, "au.username="+placeholder(*filter.AuthorUsername))
	}
	if filter.AgentUsername != nil {
		clauses = append(clauses, "ag.username="+placeholder(*filter.AgentUsername))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		ph := placeholder(searchPattern(*filter.SearchTerm))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(t.title) LIKE %s ESCAPE '\' OR LOWER(COALESCE(t.description, '')) LIKE %s ESCAPE '\')`, ph, ph))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.id ASC%s`, ticketSelect, strings.Join(clauses, " AND "), pageClause(filter))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// ticketRow holds the nullable columns of the ticket join.
type ticketRow struct {
	description *string
	agentID     *int64
	agentName   *string
	agentRole   *string
}

func (row ticketRow) apply(ticket *domain.Ticket) {
	ticket.Description = domain.OptionalFromPtr(row.description)
	ticket.Agent = domain.None[domain.Account]()
	if row.agentID != nil && row.agentName != nil {
		agent := domain.Account{ID: *row.agentID, Username: *row.agentName}
		if row.agentRole != nil {
			agent.Role = domain.Role(*row.agentRole)
		}
		ticket.Agent = domain.Some(agent)
	}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		extra  ticketRow
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&extra.description,
		&ticket.Status,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Author.ID,
		&ticket.Author.Username,
		&ticket.Author.Role,
		&extra.agentID,
		&extra.agentName,
		&extra.agentRole,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	extra.apply(&ticket)
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
	return &ticket, nil
}

func agentID(ticket *domain.Ticket) *int64 {
	if agent, ok := ticket.Agent.Get(); ok {
		id := agent.ID
		return &id
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPattern builds a substring LIKE pattern; callers pass ESCAPE '\'.
func searchPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

func pageClause(filter TicketFilter) string {
	if filter.Limit <= 0 {
		return ""
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
}
