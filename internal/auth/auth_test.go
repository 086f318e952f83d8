package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/helpdesk-labs/ticket-portal/internal/config"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
	"github.com/helpdesk-labs/ticket-portal/internal/persistence"
	"github.com/helpdesk-labs/ticket-portal/internal/repository"
	apperrors "github.com/helpdesk-labs/ticket-portal/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	token, exp, err := tm.GenerateToken("noobMaster", domain.RoleClient)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Errorf("unexpected expiry %s", exp)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "noobMaster" || claims.Role != domain.RoleClient {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issuer := NewTokenManager("secret", 60)
	token, _, _ := issuer.GenerateToken("noobMaster", domain.RoleClient)

	if _, err := NewTokenManager("other", 60).ParseToken(token); err == nil {
		t.Error("expected signature failure")
	}

	later := NewTokenManager("secret", 60)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := later.ParseToken(token); err == nil {
		t.Error("expected expired token to fail")
	}
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "password"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := ComparePassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if ValidatePassword("short") == nil {
		t.Error("expected short password to fail")
	}
	if ValidatePassword("long enough") != nil {
		t.Error("expected valid password")
	}
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	db, err := persistence.OpenSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "auth.db")}, zap.NewNop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := repository.NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	for _, a := range []domain.Account{
		{Username: "noobMaster", PasswordHash: "x", Role: domain.RoleClient},
		{Username: "agent007", PasswordHash: "x", Role: domain.RoleAgent},
	} {
		account := a
		if err := store.Accounts().Create(context.Background(), &account); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tm := NewTokenManager("secret", 60)
	mw := NewAuthMiddleware(tm, store.Accounts())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Username + ":" + string(p.Role))
	})
	app.Post("/client-only", mw.Handle, RequireRole(domain.RoleClient), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	app.Get("/open", RequireAuthenticated(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp.StatusCode
}

func TestMiddleware(t *testing.T) {
	app, tm := newTestApp(t)
	clientToken, _, _ := tm.GenerateToken("noobMaster", domain.RoleClient)
	agentToken, _, _ := tm.GenerateToken("agent007", domain.RoleAgent)
	ghostToken, _, _ := tm.GenerateToken("ghostUser", domain.RoleClient)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"missing header", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/me", "not-a-jwt", http.StatusUnauthorized},
		{"unknown account", http.MethodGet, "/me", ghostToken, http.StatusUnauthorized},
		{"valid client", http.MethodGet, "/me", clientToken, http.StatusOK},
		{"client role allowed", http.MethodPost, "/client-only", clientToken, http.StatusNoContent},
		{"agent role rejected", http.MethodPost, "/client-only", agentToken, http.StatusForbidden},
		{"no principal", http.MethodGet, "/open", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if got := doRequest(t, app, tc.method, tc.path, tc.token); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
