package handlers

import (
	"net/http"

	"cyberincident/config"
	"cyberincident/core/incidents"
	"cyberincident/core/utils"
)

type HistoryHandler struct {
	cfg    *config.AppConfig
	svc    *incidents.Service
	logger *utils.Logger
}

func NewHistoryHandler(cfg *config.AppConfig, svc *incidents.Service, logger *utils.Logger) *HistoryHandler {
	return &HistoryHandler{cfg: cfg, svc: svc, logger: logger}
}

// ByIncident returns the full ledger of one incident, newest first.
func (h *HistoryHandler) ByIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	entries, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// Global is the cross-incident audit view, paginated and joined with
// the incident titles.
func (h *HistoryHandler) Global(w http.ResponseWriter, r *http.Request) {
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	pageSize := parseIntDefault(r.URL.Query().Get("page_size"), 0)
	result, err := h.svc.HistoryAll(r.Context(), page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
