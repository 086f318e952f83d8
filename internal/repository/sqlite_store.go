package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helpdesk-labs/ticket-portal/internal/domain"
)

// sqliteTimeLayout is fixed width so timestamps stored as TEXT sort
// chronologically. Precision matches Postgres timestamptz.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteStore struct {
	db   *sql.DB
	q    sqlQuerier
	inTx bool
}

// NewSQLiteStore returns a Store backed by an embedded SQLite database and
// creates the schema when missing.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (Store, error) {
	s := &sqliteStore{db: db, q: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tickets (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			description TEXT,
			status      TEXT NOT NULL DEFAULT 'OPEN',
			category    TEXT NOT NULL,
			priority    TEXT NOT NULL DEFAULT 'MEDIUM',
			author_id   INTEGER NOT NULL REFERENCES accounts(id),
			agent_id    INTEGER REFERENCES accounts(id),
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ticket_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id   INTEGER NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
			changed_by  TEXT NOT NULL,
			change_type TEXT NOT NULL,
			old_value   TEXT NOT NULL DEFAULT '{}',
			new_value   TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_author ON tickets(author_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_ticket_history_ticket ON ticket_history(ticket_id);
	`)
	if err != nil {
		return fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return nil
}

func (s *sqliteStore) Tickets() TicketRepository {
	return &sqliteTicketRepository{q: s.q}
}

func (s *sqliteStore) Accounts() AccountRepository {
	return &sqliteAccountRepository{q: s.q}
}

func (s *sqliteStore) History() TicketHistoryRepository {
	return &sqliteHistoryRepository{q: s.q}
}

func (s *sqliteStore) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(&sqliteStore{db: s.db, q: tx, inTx: true})
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func translateSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite store: parse time %q: %w", raw, err)
	}
	return t.UTC(), nil
}

type sqliteAccountRepository struct {
	q sqlQuerier
}

func (r *sqliteAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		account.Username, account.PasswordHash, string(account.Role), formatTime(account.CreatedAt))
	if err != nil {
		return translateSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = id
	return nil
}

func (r *sqliteAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var (
		account   domain.Account
		role      string
		createdAt string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM accounts WHERE username = ?`, username,
	).Scan(&account.ID, &account.Username, &account.PasswordHash, &role, &createdAt)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	account.Role = domain.Role(role)
	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &account, nil
}

type sqliteTicketRepository struct {
	q sqlQuerier
}

const sqliteTicketSelect = `
	SELECT t.id, t.title, t.description, t.status, t.category, t.priority,
	       au.id, au.username, au.role,
	       ag.id, ag.username, ag.role,
	       t.created_at, t.updated_at
	FROM tickets t
	JOIN accounts au ON au.id = t.author_id
	LEFT JOIN accounts ag ON ag.id = t.agent_id`

func (r *sqliteTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO tickets (title, description, status, category, priority, author_id, agent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.Title,
		ticket.Description.Ptr(),
		string(ticket.Status),
		string(ticket.Category),
		string(ticket.Priority),
		ticket.Author.ID,
		agentID(ticket),
		formatTime(ticket.CreatedAt),
		formatTime(ticket.UpdatedAt),
	)
	if err != nil {
		return translateSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ticket.ID = id
	return nil
}

func (r *sqliteTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE tickets SET title = ?, description = ?, status = ?, category = ?, priority = ?,
			agent_id = ?, updated_at = ?
		WHERE id = ?`,
		ticket.Title,
		ticket.Description.Ptr(),
		string(ticket.Status),
		string(ticket.Category),
		string(ticket.Priority),
		agentID(ticket),
		formatTime(ticket.UpdatedAt),
		ticket.ID,
	)
	if err != nil {
		return translateSQLiteError(err)
	}
	return requireAffected(res)
}

func (r *sqliteTicketRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return translateSQLiteError(err)
	}
	return requireAffected(res)
}

func (r *sqliteTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := scanSQLiteTicket(r.q.QueryRowContext(ctx, sqliteTicketSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	return ticket, nil
}

// GetByIDForUpdate relies on SQLite's single writer: the surrounding
// transaction is the only one allowed to write until it ends.
func (r *sqliteTicketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *sqliteTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := sqliteTicketSelect + " WHERE 1=1"
	var args []any

	if len(filter.Statuses) > 0 {
		query += " AND t.status IN (" + sqlitePlaceholders(len(filter.Statuses)) + ")"
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if len(filter.Categories) > 0 {
		query += " AND t.category IN (" + sqlitePlaceholders(len(filter.Categories)) + ")"
		for _, category := range filter.Categories {
			args = append(args, string(category))
		}
	}
	if len(filter.Priorities) > 0 {
		query += " AND t.priority IN (" + sqlitePlaceholders(len(filter.Priorities)) + ")"
		for _, pr := range filter.Priorities {
			args = append(args, string(pr))
		}
	}
	if filter.AuthorUsername != nil {
		query += " AND au.username = ?"
		args = append(args, *filter.AuthorUsername)
	}
	if filter.AgentUsername != nil {
		query += " AND ag.username = ?"
		args = append(args, *filter.AgentUsername)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		pattern := searchPattern(*filter.SearchTerm)
		query += ` AND (LOWER(t.title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(t.description, '')) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY t.id ASC" + pageClause(filter)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list tickets: %w", err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket                     domain.Ticket
		extra                      ticketRow
		status, category, priority string
		authorRole                 string
		createdAt, updatedAt       string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&extra.description,
		&status,
		&category,
		&priority,
		&ticket.Author.ID,
		&ticket.Author.Username,
		&authorRole,
		&extra.agentID,
		&extra.agentName,
		&extra.agentRole,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.Category = domain.TicketCategory(category)
	ticket.Priority = domain.TicketPriority(priority)
	ticket.Author.Role = domain.Role(authorRole)
	extra.apply(&ticket)

	var err error
	if ticket.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ticket.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &ticket, nil
}

type sqliteHistoryRepository struct {
	q sqlQuerier
}

func (r *sqliteHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	oldValue, err := json.Marshal(history.OldValue)
	if err != nil {
		return err
	}
	newValue, err := json.Marshal(history.NewValue)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO ticket_history (ticket_id, changed_by, change_type, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		history.TicketID, history.ChangedBy, string(history.ChangeType),
		string(oldValue), string(newValue), formatTime(history.CreatedAt))
	if err != nil {
		return translateSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	history.ID = id
	return nil
}

func (r *sqliteHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, ticket_id, changed_by, change_type, old_value, new_value, created_at
		FROM ticket_history WHERE ticket_id = ? ORDER BY created_at ASC, id ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list history: %w", err)
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var (
			history                     domain.TicketHistory
			changeType                  string
			oldValue, newValue, created string
		)
		if err := rows.Scan(&history.ID, &history.TicketID, &history.ChangedBy, &changeType,
			&oldValue, &newValue, &created); err != nil {
			return nil, err
		}
		history.ChangeType = domain.TicketChangeType(changeType)
		if err := json.Unmarshal([]byte(oldValue), &history.OldValue); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(newValue), &history.NewValue); err != nil {
			return nil, err
		}
		if history.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqlitePlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
