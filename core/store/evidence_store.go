package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Evidence struct {
	ID          int64     `json:"id"`
	IncidentID  int64     `json:"incident_id"`
	Filename    string    `json:"filename"`
	StoredPath  string    `json:"-"`
	Category    string    `json:"category"`
	SizeBytes   int64     `json:"size_bytes"`
	SHA256      string    `json:"sha256,omitempty"`
	Preview     []byte    `json:"-"`
	PreviewType string    `json:"preview_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// HasPreview is what list responses expose instead of the blob itself.
func (e *Evidence) HasPreview() bool {
	return len(e.Preview) > 0
}

type EvidenceStore interface {
	AddEvidence(ctx context.Context, ev *Evidence) (int64, error)
	GetEvidence(ctx context.Context, id int64) (*Evidence, error)
	ListEvidence(ctx context.Context, incidentID int64) ([]Evidence, error)
	DeleteEvidence(ctx context.Context, id int64) error
	CountEvidence(ctx context.Context) (int, error)
}

type evidenceStore struct {
	db *sql.DB
}

func NewEvidenceStore(db *sql.DB) EvidenceStore {
	return &evidenceStore{db: db}
}

func (s *evidenceStore) AddEvidence(ctx context.Context, ev *Evidence) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence(incident_id, filename, stored_path, category, size_bytes, sha256, preview, preview_type, uploaded_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		ev.IncidentID, ev.Filename, ev.StoredPath, ev.Category, ev.SizeBytes, ev.SHA256, ev.Preview, ev.PreviewType, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	ev.ID = id
	ev.UploadedAt = now
	return id, nil
}

func (s *evidenceStore) GetEvidence(ctx context.Context, id int64) (*Evidence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, incident_id, filename, stored_path, category, size_bytes, sha256, preview, preview_type, uploaded_at
		FROM evidence WHERE id=?`, id)
	var ev Evidence
	if err := row.Scan(&ev.ID, &ev.IncidentID, &ev.Filename, &ev.StoredPath, &ev.Category, &ev.SizeBytes, &ev.SHA256, &ev.Preview, &ev.PreviewType, &ev.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (s *evidenceStore) ListEvidence(ctx context.Context, incidentID int64) ([]Evidence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, incident_id, filename, stored_path, category, size_bytes, sha256, preview, preview_type, uploaded_at
		FROM evidence WHERE incident_id=? ORDER BY uploaded_at DESC, id DESC`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Evidence
	for rows.Next() {
		var ev Evidence
		if err := rows.Scan(&ev.ID, &ev.IncidentID, &ev.Filename, &ev.StoredPath, &ev.Category, &ev.SizeBytes, &ev.SHA256, &ev.Preview, &ev.PreviewType, &ev.UploadedAt); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func (s *evidenceStore) DeleteEvidence(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *evidenceStore) CountEvidence(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evidence`).Scan(&n)
	return n, err
}
