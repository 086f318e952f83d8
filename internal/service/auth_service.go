package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/helpdesk-labs/ticket-portal/internal/auth"
	"github.com/helpdesk-labs/ticket-portal/internal/config"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
	"github.com/helpdesk-labs/ticket-portal/internal/repository"
	apperrors "github.com/helpdesk-labs/ticket-portal/pkg/util/errorutil"
)

// AuthService coordinates login and account provisioning.
type AuthService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, accounts repository.AccountRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		accounts:   accounts,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
	}
}

// Authenticate exchanges credentials for a signed access token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, time.Time, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return "", time.Time{}, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.tokenMgr.GenerateToken(account.Username, account.Role)
}

// CreateAccount registers a new account with a hashed password.
func (s *AuthService) CreateAccount(ctx context.Context, username, password string, role domain.Role) (*domain.Account, error) {
	fields := map[string]string{}
	if n := utf8.RuneCountInString(username); n < domain.UsernameMinLength || n > domain.UsernameMaxLength {
		fields["username"] = "size must be between 6 and 20"
	}
	if err := auth.ValidatePassword(password); err != nil {
		fields["password"] = err.Error()
	}
	if !role.Valid() {
		fields["role"] = "must be one of CLIENT, AGENT"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("account validation failed", fields)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
		}
		return nil, err
	}
	return account, nil
}
