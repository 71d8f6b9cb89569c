package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cyberincident/api/handlers"
	"cyberincident/config"
	"cyberincident/core/incidents"
	"cyberincident/core/store"
	"cyberincident/core/utils"
)

// ServerDeps carries everything the HTTP layer needs. Composition
// happens in main so the api package stays free of wiring decisions.
type ServerDeps struct {
	DB             *sql.DB
	IncidentsStore store.IncidentsStore
	EvidenceStore  store.EvidenceStore
	HistoryStore   store.HistoryStore
	IncidentsSvc   *incidents.Service
}

type Server struct {
	cfg            *config.AppConfig
	db             *sql.DB
	incidentsStore store.IncidentsStore
	evidenceStore  store.EvidenceStore
	historyStore   store.HistoryStore
	incidentsSvc   *incidents.Service
	logger         *utils.Logger
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	return &Server{
		cfg:            cfg,
		db:             deps.DB,
		incidentsStore: deps.IncidentsStore,
		evidenceStore:  deps.EvidenceStore,
		historyStore:   deps.HistoryStore,
		incidentsSvc:   deps.IncidentsSvc,
		logger:         logger,
	}
}

type routeHandlers struct {
	incidents *handlers.IncidentsHandler
	evidence  *handlers.EvidenceHandler
	history   *handlers.HistoryHandler
	health    *handlers.HealthHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		incidents: handlers.NewIncidentsHandler(s.cfg, s.incidentsSvc, s.logger),
		evidence:  handlers.NewEvidenceHandler(s.cfg, s.incidentsSvc, s.logger),
		history:   handlers.NewHistoryHandler(s.cfg, s.incidentsSvc, s.logger),
		health:    handlers.NewHealthHandler(s.cfg, s.db, s.incidentsStore, s.evidenceStore, s.historyStore, s.logger),
	}
}

func (s *Server) Router() http.Handler {
	h := s.newRouteHandlers()

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.requestLogMiddleware)

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.MethodFunc("GET", "/health", h.health.Check)
		apiRouter.MethodFunc("GET", "/dashboard", h.incidents.Dashboard)

		apiRouter.Route("/incidents", func(incidentsRouter chi.Router) {
			incidentsRouter.MethodFunc("GET", "/", h.incidents.List)
			incidentsRouter.MethodFunc("POST", "/", h.incidents.Create)
			incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}", h.incidents.Get)
			incidentsRouter.MethodFunc("DELETE", "/{id:[0-9]+}", h.incidents.Delete)
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/status", h.incidents.ChangeStatus)
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/comments", h.incidents.AddComment)
			incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}/evidence", h.evidence.List)
			incidentsRouter.MethodFunc("POST", "/{id:[0-9]+}/evidence", h.evidence.Upload)
			incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}/archive", h.evidence.ExportArchive)
			incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}/history", h.history.ByIncident)
		})

		apiRouter.Route("/evidence", func(evidenceRouter chi.Router) {
			evidenceRouter.MethodFunc("GET", "/{id:[0-9]+}", h.evidence.Download)
			evidenceRouter.MethodFunc("DELETE", "/{id:[0-9]+}", h.evidence.Delete)
		})

		apiRouter.MethodFunc("GET", "/history", h.history.Global)
	})

	return r
}
