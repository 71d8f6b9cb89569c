package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"cyberincident/config"
	"cyberincident/core/incidents"
	"cyberincident/core/utils"
)

type EvidenceHandler struct {
	cfg    *config.AppConfig
	svc    *incidents.Service
	logger *utils.Logger
}

func NewEvidenceHandler(cfg *config.AppConfig, svc *incidents.Service, logger *utils.Logger) *EvidenceHandler {
	return &EvidenceHandler{cfg: cfg, svc: svc, logger: logger}
}

func (h *EvidenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	maxBody := h.svc.Validator().MaxBytes()*4 + (1 << 20)
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := uploadFiles(r.MultipartForm)
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	result, err := h.svc.AddEvidence(r.Context(), id, files, actorFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if len(result.Accepted) == 0 {
		// Nothing happened, as opposed to partially happened.
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{
		"accepted_count": len(result.Accepted),
		"accepted":       result.Accepted,
		"rejected":       result.Rejected,
	})
}

func (h *EvidenceHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	items, err := h.svc.ListEvidence(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": evidenceDTOs(items)})
}

// Download serves the stored bytes. `?modo=ver` (or `mode=view`)
// switches to the inline view, which prefers the normalized preview
// for image evidence.
func (h *EvidenceHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid evidence id")
		return
	}
	mode := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("modo")))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode")))
	}
	inline := mode == "ver" || mode == "view"
	ev, data, contentType, err := h.svc.EvidenceContent(r.Context(), id, inline, actorFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(ev.Filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}
	w.Header().Set("Content-Type", contentType)
	if inline {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", ev.Filename))
	} else {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ev.Filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *EvidenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid evidence id")
		return
	}
	if err := h.svc.DeleteEvidence(r.Context(), id, actorFrom(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ExportArchive streams a zip of everything still on disk. An incident
// without evidence answers 204 so callers can tell "no evidence" from
// an empty archive.
func (h *EvidenceHandler) ExportArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	archive, err := h.svc.ExportArchive(r.Context(), id, actorFrom(r))
	if err != nil {
		if errors.Is(err, incidents.ErrNoEvidence) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Data)
}
