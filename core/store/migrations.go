package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"cyberincident/core/utils"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		severity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Open',
		reporter TEXT NOT NULL DEFAULT 'Anónimo',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS evidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		incident_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'unknown',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		sha256 TEXT NOT NULL DEFAULT '',
		preview BLOB,
		preview_type TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMP NOT NULL,
		FOREIGN KEY(incident_id) REFERENCES incidents(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		incident_id INTEGER NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY(incident_id) REFERENCES incidents(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_created ON incidents(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_incident ON evidence(incident_id);`,
	`CREATE INDEX IF NOT EXISTS idx_history_incident_created ON history(incident_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);`,
}

// ApplyMigrations brings the schema up to date. Postgres deployments go
// through goose so the migration history is tracked; sqlite applies the
// idempotent statement list directly.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	if IsPostgres(db) {
		return applyPostgresMigrations(ctx, db, logger)
	}
	return applySQLiteMigrations(ctx, db, logger)
}

func applySQLiteMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	logger.Printf("sqlite migrations applied")
	return nil
}

func applyPostgresMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	logger.Printf("postgres migrations applied")
	return nil
}
