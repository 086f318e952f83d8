package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/helpdesk-labs/ticket-portal/internal/auth"
	"github.com/helpdesk-labs/ticket-portal/internal/config"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
	apperrors "github.com/helpdesk-labs/ticket-portal/pkg/util/errorutil"
)

func newAuthService(t *testing.T) (*AuthService, *auth.TokenManager) {
	t.Helper()
	f := newFixture(t)
	tokens := auth.NewTokenManager("secret", 60)
	return NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, f.store.Accounts(), tokens), tokens
}

func TestCreateAccountAndAuthenticate(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "helpdesk1", "password", domain.RoleAgent)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if account.ID == 0 || account.PasswordHash == "password" {
		t.Errorf("unexpected account %+v", account)
	}

	token, _, err := svc.Authenticate(ctx, "helpdesk1", "password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	claims, err := tokens.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "helpdesk1" || claims.Role != domain.RoleAgent {
		t.Errorf("unexpected claims %+v", claims)
	}

	_, _, err = svc.Authenticate(ctx, "helpdesk1", "wrong-password")
	expectCode(t, err, apperrors.CodeUnauthorized)
	_, _, err = svc.Authenticate(ctx, "nobody1", "password")
	expectCode(t, err, apperrors.CodeUnauthorized)
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "abc", "short", domain.Role("ADMIN"))
	expectCode(t, err, apperrors.CodeValidationFailed)
	details := apperrors.ToDomainError(err).Details
	for _, field := range []string{"username", "password", "role"} {
		if details[field] == nil {
			t.Errorf("expected %s detail, got %v", field, details)
		}
	}

	_, err = svc.CreateAccount(ctx, client.Username, "password", domain.RoleClient)
	expectCode(t, err, apperrors.CodeConflict)
}
