package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != StoreDriverPostgres {
		t.Errorf("expected postgres driver, got %q", cfg.Store.Driver)
	}
	if cfg.App.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.App.Port)
	}
	if cfg.Auth.AccessTokenTTLMinutes != 7*24*60 {
		t.Errorf("expected 7 day token ttl, got %d minutes", cfg.Auth.AccessTokenTTLMinutes)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected origins %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_CACHE_TTL_SECONDS", "15")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Errorf("expected sqlite driver, got %q", cfg.Store.Driver)
	}
	if cfg.SQLite.Path != "/tmp/x.db" {
		t.Errorf("expected sqlite path override, got %q", cfg.SQLite.Path)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Redis.CacheTTL() != 15*time.Second {
		t.Errorf("expected 15s cache ttl, got %s", cfg.Redis.CacheTTL())
	}
	if cfg.App.RequestTimeout() != 30*time.Second {
		t.Errorf("expected fallback timeout, got %s", cfg.App.RequestTimeout())
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
