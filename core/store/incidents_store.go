package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

type Incident struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	Reporter    string    `json:"reporter"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type IncidentFilter struct {
	Status string
	Limit  int
	Offset int
}

type DashboardCounts struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Critical int `json:"critical"`
	Resolved int `json:"resolved"`
}

type IncidentsStore interface {
	CreateIncident(ctx context.Context, incident *Incident) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error)
	CountIncidents(ctx context.Context, status string) (int, error)
	SetIncidentStatus(ctx context.Context, id int64, status string) error
	DeleteIncident(ctx context.Context, id int64) error
	DashboardCounts(ctx context.Context) (DashboardCounts, error)
}

type incidentsStore struct {
	db *sql.DB
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db}
}

func (s *incidentsStore) CreateIncident(ctx context.Context, incident *Incident) (int64, error) {
	now := time.Now().UTC()
	if strings.TrimSpace(incident.Status) == "" {
		incident.Status = "Open"
	}
	if strings.TrimSpace(incident.Reporter) == "" {
		incident.Reporter = "Anónimo"
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents(title, description, category, severity, status, reporter, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		incident.Title, incident.Description, incident.Category, incident.Severity, incident.Status, incident.Reporter, now, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	incident.ID = id
	incident.CreatedAt = now
	incident.UpdatedAt = now
	return id, nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, severity, status, reporter, created_at, updated_at
		FROM incidents WHERE id=?`, id)
	var inc Incident
	if err := row.Scan(&inc.ID, &inc.Title, &inc.Description, &inc.Category, &inc.Severity, &inc.Status, &inc.Reporter, &inc.CreatedAt, &inc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inc, nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, filter.Status)
	}
	query := `SELECT id, title, description, category, severity, status, reporter, created_at, updated_at FROM incidents`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Incident
	for rows.Next() {
		var inc Incident
		if err := rows.Scan(&inc.ID, &inc.Title, &inc.Description, &inc.Category, &inc.Severity, &inc.Status, &inc.Reporter, &inc.CreatedAt, &inc.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, inc)
	}
	return res, rows.Err()
}

func (s *incidentsStore) CountIncidents(ctx context.Context, status string) (int, error) {
	query := `SELECT COUNT(*) FROM incidents`
	var args []any
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *incidentsStore) SetIncidentStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE incidents SET status=?, updated_at=? WHERE id=?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIncident removes the row; evidence and history rows go with it
// via the foreign key cascade.
func (s *incidentsStore) DeleteIncident(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incidents WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *incidentsStore) DashboardCounts(ctx context.Context) (DashboardCounts, error) {
	var c DashboardCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status='Open' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN severity='critical' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='Resolved' THEN 1 ELSE 0 END), 0)
		FROM incidents`).Scan(&c.Total, &c.Open, &c.Critical, &c.Resolved)
	return c, err
}
