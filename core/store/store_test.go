package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cyberincident/config"
	"cyberincident/core/utils"
)

func setupDB(t *testing.T) (context.Context, IncidentsStore, EvidenceStore, HistoryStore) {
	t.Helper()
	cfg := &config.AppConfig{DBPath: filepath.Join(t.TempDir(), "test.db")}
	logger := utils.NewLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return context.Background(), NewIncidentsStore(db), NewEvidenceStore(db), NewHistoryStore(db)
}

func seedIncident(t *testing.T, ctx context.Context, is IncidentsStore, severity, status string) *Incident {
	t.Helper()
	inc := &Incident{
		Title:       "Incidente de prueba",
		Description: "descripcion",
		Category:    "other",
		Severity:    severity,
		Status:      status,
	}
	if _, err := is.CreateIncident(ctx, inc); err != nil {
		t.Fatalf("create incident: %v", err)
	}
	return inc
}

func TestCreateIncidentDefaults(t *testing.T) {
	ctx, is, _, _ := setupDB(t)
	inc := &Incident{Title: "t", Description: "d", Category: "other", Severity: "low"}
	id, err := is.CreateIncident(ctx, inc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := is.GetIncident(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "Open" {
		t.Fatalf("status %q, want Open", got.Status)
	}
	if got.Reporter != "Anónimo" {
		t.Fatalf("reporter %q, want Anónimo", got.Reporter)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestGetIncidentNotFound(t *testing.T) {
	ctx, is, _, _ := setupDB(t)
	if _, err := is.GetIncident(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error %v, want ErrNotFound", err)
	}
	if err := is.SetIncidentStatus(ctx, 12345, "Closed"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("set status error %v, want ErrNotFound", err)
	}
	if err := is.DeleteIncident(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete error %v, want ErrNotFound", err)
	}
}

func TestListIncidentsFilterAndOrder(t *testing.T) {
	ctx, is, _, _ := setupDB(t)
	seedIncident(t, ctx, is, "low", "Open")
	seedIncident(t, ctx, is, "high", "Resolved")
	last := seedIncident(t, ctx, is, "critical", "Open")

	all, err := is.ListIncidents(ctx, IncidentFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listed %d, want 3", len(all))
	}
	if all[0].ID != last.ID {
		t.Fatalf("newest first broken: got id %d, want %d", all[0].ID, last.ID)
	}

	open, err := is.ListIncidents(ctx, IncidentFilter{Status: "Open"})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open %d, want 2", len(open))
	}

	limited, err := is.ListIncidents(ctx, IncidentFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(limited) != 1 || limited[0].ID == last.ID {
		t.Fatalf("paging broken: %+v", limited)
	}

	n, err := is.CountIncidents(ctx, "Open")
	if err != nil || n != 2 {
		t.Fatalf("count open = %d (%v), want 2", n, err)
	}
}

func TestSetIncidentStatusTouchesUpdatedAt(t *testing.T) {
	ctx, is, _, _ := setupDB(t)
	inc := seedIncident(t, ctx, is, "low", "")
	if err := is.SetIncidentStatus(ctx, inc.ID, "Investigating"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ := is.GetIncident(ctx, inc.ID)
	if got.Status != "Investigating" {
		t.Fatalf("status %q", got.Status)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Fatal("updated_at went backwards")
	}
}

func TestDashboardCountsQuery(t *testing.T) {
	ctx, is, _, _ := setupDB(t)
	seedIncident(t, ctx, is, "low", "Open")
	seedIncident(t, ctx, is, "critical", "Open")
	seedIncident(t, ctx, is, "critical", "Resolved")

	counts, err := is.DashboardCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Total != 3 || counts.Open != 2 || counts.Critical != 2 || counts.Resolved != 1 {
		t.Fatalf("counts %+v", counts)
	}
}

func TestEvidenceRoundtrip(t *testing.T) {
	ctx, is, es, _ := setupDB(t)
	inc := seedIncident(t, ctx, is, "low", "")
	ev := &Evidence{
		IncidentID:  inc.ID,
		Filename:    "captura.png",
		StoredPath:  "/tmp/x",
		Category:    "image",
		SizeBytes:   12,
		SHA256:      "abc",
		Preview:     []byte("blob"),
		PreviewType: "image/jpeg",
	}
	id, err := es.AddEvidence(ctx, ev)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := es.GetEvidence(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Filename != "captura.png" || string(got.Preview) != "blob" || got.PreviewType != "image/jpeg" {
		t.Fatalf("row %+v", got)
	}
	if !got.HasPreview() {
		t.Fatal("HasPreview false with blob present")
	}
	if err := es.DeleteEvidence(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := es.GetEvidence(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error %v, want ErrNotFound", err)
	}
}

func TestCascadeDeleteClearsChildren(t *testing.T) {
	ctx, is, es, hs := setupDB(t)
	inc := seedIncident(t, ctx, is, "low", "")
	if _, err := es.AddEvidence(ctx, &Evidence{IncidentID: inc.ID, Filename: "a.txt", StoredPath: "/tmp/a"}); err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	if _, err := hs.AddEntry(ctx, &HistoryEntry{IncidentID: inc.ID, Actor: "x", Action: "CREATION", Detail: "d"}); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if err := is.DeleteIncident(ctx, inc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, err := es.ListEvidence(ctx, inc.ID)
	if err != nil || len(rows) != 0 {
		t.Fatalf("evidence after cascade: %d (%v)", len(rows), err)
	}
	entries, err := hs.ListByIncident(ctx, inc.ID, 0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("history after cascade: %d (%v)", len(entries), err)
	}
}

func TestHistoryListAllJoin(t *testing.T) {
	ctx, is, _, hs := setupDB(t)
	a := seedIncident(t, ctx, is, "low", "")
	b := seedIncident(t, ctx, is, "high", "")
	hs.AddEntry(ctx, &HistoryEntry{IncidentID: a.ID, Actor: "u", Action: "CREATION", Detail: "1"})
	hs.AddEntry(ctx, &HistoryEntry{IncidentID: b.ID, Actor: "u", Action: "CREATION", Detail: "2"})

	entries, err := hs.ListAll(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.IncidentTitle == "" {
			t.Fatalf("entry %+v missing joined title", e)
		}
	}
	n, err := hs.CountEntries(ctx)
	if err != nil || n != 2 {
		t.Fatalf("count = %d (%v), want 2", n, err)
	}
}
