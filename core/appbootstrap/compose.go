package appbootstrap

import (
	"database/sql"

	"cyberincident/api"
	"cyberincident/config"
	"cyberincident/core/evidence"
	"cyberincident/core/incidents"
	"cyberincident/core/store"
	"cyberincident/core/utils"
)

func composeRuntime(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) api.ServerDeps {
	incidentsStore := store.NewIncidentsStore(db)
	evidenceStore := store.NewEvidenceStore(db)
	historyStore := store.NewHistoryStore(db)
	files := evidence.NewStorage(cfg.Uploads.Dir, logger)
	incidentsSvc := incidents.NewService(cfg, incidentsStore, evidenceStore, historyStore, files, logger)

	return api.ServerDeps{
		DB:             db,
		IncidentsStore: incidentsStore,
		EvidenceStore:  evidenceStore,
		HistoryStore:   historyStore,
		IncidentsSvc:   incidentsSvc,
	}
}
