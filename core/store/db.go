package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cyberincident/config"
	"cyberincident/core/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// NewDB opens the configured database. Sqlite is the default and keeps
// the single-file deployment of the original; postgres is selected via
// db_driver for shared installs.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch driver {
	case "", "sqlite", "sqlite3":
		path := cfg.DBPath
		if path == "" {
			path = "data/incidentes.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// modernc sqlite is not safe for concurrent writers on one conn pool
		// beyond what busy_timeout covers; a single writer keeps it simple.
		db.SetMaxOpenConns(1)
		logger.Printf("sqlite database at %s", path)
		return db, nil
	case "postgres", "pgx":
		// The stores speak `?` placeholders and LastInsertId, which pgx
		// does not translate; this driver provisions the schema via
		// goose but is not yet a full query backend.
		if strings.TrimSpace(cfg.DBURL) == "" {
			return nil, fmt.Errorf("db_url is required for the postgres driver")
		}
		db, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, err
		}
		logger.Printf("postgres database configured")
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported db_driver %q", cfg.DBDriver)
	}
}

// IsPostgres sniffs the active driver so migrations can branch.
func IsPostgres(db *sql.DB) bool {
	var out string
	if err := db.QueryRow(`SELECT version()`).Scan(&out); err != nil {
		return false
	}
	return strings.Contains(out, "PostgreSQL")
}
