package handlers

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"cyberincident/config"
	"cyberincident/core/store"
	"cyberincident/core/utils"
)

type HealthHandler struct {
	cfg       *config.AppConfig
	db        *sql.DB
	incidents store.IncidentsStore
	evidence  store.EvidenceStore
	history   store.HistoryStore
	logger    *utils.Logger
	startedAt time.Time
}

func NewHealthHandler(cfg *config.AppConfig, db *sql.DB, incidents store.IncidentsStore, evidence store.EvidenceStore, history store.HistoryStore, logger *utils.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:       cfg,
		db:        db,
		incidents: incidents,
		evidence:  evidence,
		history:   history,
		logger:    logger,
		startedAt: utils.NowUTC(),
	}
}

type healthReport struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	UploadDir     string `json:"upload_dir"`
	Incidents     int    `json:"incidents"`
	Evidence      int    `json:"evidence"`
	HistoryCount  int    `json:"history_entries"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Check answers 200 while every dependency responds and degrades to 503
// otherwise, so load balancers and probes agree on the same signal.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report := healthReport{
		Status:        "ok",
		Database:      "ok",
		UploadDir:     "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Errorf("health: database ping failed: %v", err)
		report.Status = "degraded"
		report.Database = "unreachable"
	} else {
		if n, err := h.incidents.CountIncidents(ctx, ""); err == nil {
			report.Incidents = n
		} else {
			report.Status = "degraded"
			report.Database = "error"
		}
		if n, err := h.evidence.CountEvidence(ctx); err == nil {
			report.Evidence = n
		}
		if n, err := h.history.CountEntries(ctx); err == nil {
			report.HistoryCount = n
		}
	}

	if info, err := os.Stat(h.cfg.Uploads.Dir); err != nil || !info.IsDir() {
		report.Status = "degraded"
		report.UploadDir = "missing"
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
