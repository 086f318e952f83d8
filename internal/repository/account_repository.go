package repository

import (
	"context"

	"github.com/helpdesk-labs/ticket-portal/internal/domain"
)

// AccountRepository is the user directory.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

type accountRepository struct {
	db pgQuerier
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (username, password_hash, role)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		account.Username,
		account.PasswordHash,
		account.Role,
	).Scan(&account.ID, &account.CreatedAt)
	return translatePgError(err)
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `
        SELECT id, username, password_hash, role, created_at
        FROM accounts WHERE username=$1`

	var account domain.Account
	if err := r.db.QueryRow(ctx, query, username).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedAt,
	); err != nil {
		return nil, translatePgError(err)
	}
	return &account, nil
}
