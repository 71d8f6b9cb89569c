package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"cyberincident/config"
	"cyberincident/core/incidents"
	"cyberincident/core/store"
	"cyberincident/core/utils"
)

type IncidentsHandler struct {
	cfg    *config.AppConfig
	svc    *incidents.Service
	logger *utils.Logger
}

func NewIncidentsHandler(cfg *config.AppConfig, svc *incidents.Service, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{cfg: cfg, svc: svc, logger: logger}
}

// Create accepts multipart form data so evidence files can ride along
// with the incident fields in a single request.
func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	maxBody := h.svc.Validator().MaxBytes()*4 + (1 << 20)
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	in := incidents.CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    strings.ToLower(strings.TrimSpace(r.FormValue("category"))),
		Severity:    strings.ToLower(strings.TrimSpace(r.FormValue("severity"))),
		Reporter:    r.FormValue("reporter"),
		Files:       uploadFiles(r.MultipartForm),
	}
	incident, attach, err := h.svc.Create(r.Context(), in, actorFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"incident": incident,
		"evidence": attach,
	})
}

func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("estado"))
	if status == "" {
		status = strings.TrimSpace(q.Get("status"))
	}
	page := parseIntDefault(q.Get("page"), 1)
	pageSize := parseIntDefault(q.Get("page_size"), 0)
	result, err := h.svc.List(r.Context(), status, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	incident, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	evidenceList, err := h.svc.ListEvidence(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	history, err := h.svc.History(r.Context(), id, 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incident": incident,
		"evidence": evidenceDTOs(evidenceList),
		"history":  history,
	})
}

func (h *IncidentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	if err := h.svc.Delete(r.Context(), id, actorFrom(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *IncidentsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	incident, err := h.svc.ChangeStatus(r.Context(), id, strings.TrimSpace(payload.Status), actorFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incident": incident})
}

func (h *IncidentsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	var payload struct {
		Comment string `json:"comment"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if err := h.svc.AddComment(r.Context(), id, actorFrom(r), payload.Comment); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (h *IncidentsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer io.Copy(io.Discard, r.Body)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// uploadFiles adapts multipart headers into the service's file
// handles without slurping everything up front.
func uploadFiles(form *multipart.Form, fieldNames ...string) []incidents.UploadFile {
	if form == nil {
		return nil
	}
	if len(fieldNames) == 0 {
		fieldNames = []string{"files", "evidence", "file"}
	}
	var out []incidents.UploadFile
	for _, field := range fieldNames {
		for _, fh := range form.File[field] {
			fh := fh
			out = append(out, incidents.UploadFile{
				Name: fh.Filename,
				Size: fh.Size,
				Open: func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}
	return out
}

// evidenceDTO flattens the row for listings: the preview blob stays
// server-side, only its presence is reported.
type evidenceDTO struct {
	store.Evidence
	HasPreview bool `json:"has_preview"`
}

func evidenceDTOs(items []store.Evidence) []evidenceDTO {
	out := make([]evidenceDTO, 0, len(items))
	for _, ev := range items {
		out = append(out, evidenceDTO{Evidence: ev, HasPreview: ev.HasPreview()})
	}
	return out
}
