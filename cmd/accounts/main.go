// accounts provisions portal accounts. Registration is not exposed over
// HTTP, so operators create clients and agents with this tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-portal/internal/auth"
	"github.com/helpdesk-labs/ticket-portal/internal/bootstrap"
	"github.com/helpdesk-labs/ticket-portal/internal/config"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
	"github.com/helpdesk-labs/ticket-portal/internal/observability"
	"github.com/helpdesk-labs/ticket-portal/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var username, password, role string

	flagSet := pflag.NewFlagSet("accounts", pflag.ContinueOnError)
	flagSet.StringVarP(&username, "username", "u", "", "account username (6-20 characters)")
	flagSet.StringVarP(&password, "password", "p", "", "account password (falls back to ACCOUNT_PASSWORD)")
	flagSet.StringVarP(&role, "role", "r", string(domain.RoleClient), "account role: CLIENT or AGENT")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if password == "" {
		password = os.Getenv("ACCOUNT_PASSWORD")
	}
	if username == "" || password == "" {
		return errors.New("--username and --password are required")
	}
	parsedRole, ok := domain.ParseRole(strings.ToUpper(role))
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	account, err := service.NewAuthService(cfg.Auth, store.Accounts(), tokens).CreateAccount(ctx, username, password, parsedRole)
	if err != nil {
		return err
	}
	logger.Info("account created",
		zap.Int64("id", account.ID),
		zap.String("username", account.Username),
		zap.String("role", string(account.Role)))
	return nil
}
