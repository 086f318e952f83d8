package persistence

import (
	"database/sql"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/helpdesk-labs/ticket-portal/internal/config"
)

// OpenSQLite opens the embedded database with foreign keys enforced and a
// single connection so writers never contend for the file lock.
func OpenSQLite(cfg config.SQLiteConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: wal: %w", err)
	}

	logger.Info("opened sqlite database", zap.String("path", cfg.Path))
	return db, nil
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + params.Encode()
}
