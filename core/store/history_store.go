package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type HistoryEntry struct {
	ID            int64     `json:"id"`
	IncidentID    int64     `json:"incident_id"`
	Actor         string    `json:"actor"`
	Action        string    `json:"action"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
	IncidentTitle string    `json:"incident_title,omitempty"`
}

type HistoryStore interface {
	AddEntry(ctx context.Context, entry *HistoryEntry) (int64, error)
	ListByIncident(ctx context.Context, incidentID int64, limit int) ([]HistoryEntry, error)
	ListAll(ctx context.Context, limit, offset int) ([]HistoryEntry, error)
	CountEntries(ctx context.Context) (int, error)
}

type historyStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) HistoryStore {
	return &historyStore{db: db}
}

// AddEntry is append-only; history rows are never updated and only
// disappear through the incident cascade.
func (s *historyStore) AddEntry(ctx context.Context, entry *HistoryEntry) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history(incident_id, actor, action, detail, created_at)
		VALUES(?,?,?,?,?)`,
		entry.IncidentID, strings.TrimSpace(entry.Actor), entry.Action, strings.TrimSpace(entry.Detail), now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	entry.ID = id
	entry.CreatedAt = now
	return id, nil
}

func (s *historyStore) ListByIncident(ctx context.Context, incidentID int64, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT id, incident_id, actor, action, detail, created_at
		FROM history WHERE incident_id=? ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.Actor, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// ListAll joins the owning incident title for the global audit page.
// Entries for already-deleted incidents are gone via the cascade, so
// the join is inner.
func (s *historyStore) ListAll(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	query := `
		SELECT h.id, h.incident_id, h.actor, h.action, h.detail, h.created_at, i.title
		FROM history h
		JOIN incidents i ON i.id = h.incident_id
		ORDER BY h.created_at DESC, h.id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
		if offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.Actor, &e.Action, &e.Detail, &e.CreatedAt, &e.IncidentTitle); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *historyStore) CountEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}
