package incidents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cyberincident/config"
	"cyberincident/core/evidence"
	"cyberincident/core/store"
	"cyberincident/core/utils"
)

// History action kinds. The ledger only ever grows; these name what
// happened, not who decided it.
const (
	ActionCreation           = "CREATION"
	ActionStatusChange       = "STATUS_CHANGE"
	ActionComment            = "COMMENT"
	ActionEvidenceAdded      = "EVIDENCE_ADDED"
	ActionEvidenceDeleted    = "EVIDENCE_DELETED"
	ActionEvidenceDownloaded = "EVIDENCE_DOWNLOADED"
	ActionEvidenceViewed     = "EVIDENCE_VIEWED"
	ActionFullDownload       = "FULL_DOWNLOAD"
	ActionDeletion           = "DELETION"
)

const DefaultReporter = "Anónimo"

var ErrNoEvidence = errors.New("incident has no evidence")

var validCategories = map[string]struct{}{
	"intrusion":    {},
	"malware":      {},
	"phishing":     {},
	"ddos":         {},
	"config_error": {},
	"data_leak":    {},
	"other":        {},
}

var validSeverities = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}

// Status transitions are deliberately unrestricted: any of the four
// values may follow any other. Only set-membership is checked.
var validStatuses = map[string]struct{}{
	"Open":          {},
	"Investigating": {},
	"Resolved":      {},
	"Closed":        {},
}

func IsValidCategory(c string) bool { _, ok := validCategories[c]; return ok }
func IsValidSeverity(s string) bool { _, ok := validSeverities[s]; return ok }
func IsValidStatus(s string) bool   { _, ok := validStatuses[s]; return ok }

// FieldError reports a rejected incident field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UploadFile is the handle the web layer passes for each uploaded
// file: a name, the declared size, and a way to read the bytes.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// RejectedFile reports one file that did not make it, without
// aborting its siblings.
type RejectedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type AttachResult struct {
	Accepted []store.Evidence `json:"accepted"`
	Rejected []RejectedFile   `json:"rejected"`
}

type CreateInput struct {
	Title       string
	Description string
	Category    string
	Severity    string
	Reporter    string
	Files       []UploadFile
}

type Archive struct {
	Filename  string
	Data      []byte
	FileCount int
}

type Service struct {
	cfg       *config.AppConfig
	incidents store.IncidentsStore
	evidence  store.EvidenceStore
	history   store.HistoryStore
	files     *evidence.Storage
	validator *evidence.Validator
	previewer *evidence.Previewer
	logger    *utils.Logger
}

func NewService(cfg *config.AppConfig, is store.IncidentsStore, es store.EvidenceStore, hs store.HistoryStore, files *evidence.Storage, logger *utils.Logger) *Service {
	return &Service{
		cfg:       cfg,
		incidents: is,
		evidence:  es,
		history:   hs,
		files:     files,
		validator: evidence.NewValidator(cfg.Uploads.AllowedExtensions, cfg.Uploads.MaxBytes),
		previewer: evidence.NewPreviewer(cfg.Previews.MaxWidth, cfg.Previews.MaxHeight, cfg.Previews.JPEGQuality, logger),
		logger:    logger,
	}
}

func (s *Service) Validator() *evidence.Validator {
	return s.validator
}

// record appends a ledger entry. Ledger failure degrades to a warning
// and must never fail the operation it annotates.
func (s *Service) record(ctx context.Context, incidentID int64, actor, action, detail string) bool {
	if strings.TrimSpace(actor) == "" {
		actor = DefaultReporter
	}
	entry := &store.HistoryEntry{IncidentID: incidentID, Actor: actor, Action: action, Detail: detail}
	if _, err := s.history.AddEntry(ctx, entry); err != nil {
		s.logger.Warnf("history write failed for incident %d (%s): %v", incidentID, action, err)
		return false
	}
	return true
}

// Create validates the fields, persists the incident, then attaches
// any uploaded files. Evidence failures after the row commits leave
// the incident in place; they surface per file in the result.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*store.Incident, *AttachResult, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, nil, &FieldError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, nil, &FieldError{Field: "description", Reason: "required"}
	}
	if !IsValidCategory(in.Category) {
		return nil, nil, &FieldError{Field: "category", Reason: "must be one of the known categories"}
	}
	if !IsValidSeverity(in.Severity) {
		return nil, nil, &FieldError{Field: "severity", Reason: "must be one of the known severities"}
	}
	reporter := strings.TrimSpace(in.Reporter)
	if reporter == "" {
		reporter = DefaultReporter
	}
	incident := &store.Incident{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Severity:    in.Severity,
		Status:      "Open",
		Reporter:    reporter,
	}
	if _, err := s.incidents.CreateIncident(ctx, incident); err != nil {
		return nil, nil, err
	}
	s.record(ctx, incident.ID, actor, ActionCreation, fmt.Sprintf("Incidente creado: %s", incident.Title))
	result := s.attachFiles(ctx, incident.ID, in.Files, actor)
	return incident, result, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*store.Incident, error) {
	return s.incidents.GetIncident(ctx, id)
}

type Page struct {
	Items    []store.Incident `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// List returns one page, newest first. status filters exactly; "" or
// "all" lists everything.
func (s *Service) List(ctx context.Context, status string, page, pageSize int) (*Page, error) {
	if status == "all" {
		status = ""
	}
	if status != "" && !IsValidStatus(status) {
		return nil, &FieldError{Field: "status", Reason: "unknown status filter"}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.EffectivePageSize()
	}
	total, err := s.incidents.CountIncidents(ctx, status)
	if err != nil {
		return nil, err
	}
	items, err := s.incidents.ListIncidents(ctx, store.IncidentFilter{
		Status: status,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ChangeStatus accepts any known status from any other; only
// set-membership is validated. Each successful change produces one
// STATUS_CHANGE entry recording old and new value.
func (s *Service) ChangeStatus(ctx context.Context, id int64, newStatus, actor string) (*store.Incident, error) {
	if !IsValidStatus(newStatus) {
		return nil, &FieldError{Field: "status", Reason: "unknown status"}
	}
	incident, err := s.incidents.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	old := incident.Status
	if err := s.incidents.SetIncidentStatus(ctx, id, newStatus); err != nil {
		return nil, err
	}
	s.record(ctx, id, actor, ActionStatusChange, fmt.Sprintf("%s -> %s", old, newStatus))
	return s.incidents.GetIncident(ctx, id)
}

func (s *Service) AddComment(ctx context.Context, id int64, actor, text string) error {
	if strings.TrimSpace(text) == "" {
		return &FieldError{Field: "comment", Reason: "required"}
	}
	if _, err := s.incidents.GetIncident(ctx, id); err != nil {
		return err
	}
	if !s.record(ctx, id, actor, ActionComment, strings.TrimSpace(text)) {
		return errors.New("comment could not be recorded")
	}
	return nil
}

// Delete removes the incident and everything it owns. The DELETION
// entry is written first, while the parent row still exists; the
// cascade then takes the entry with it. File removal is best-effort
// and never blocks the row delete.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	incident, err := s.incidents.GetIncident(ctx, id)
	if err != nil {
		return err
	}
	items, err := s.evidence.ListEvidence(ctx, id)
	if err != nil {
		return err
	}
	s.record(ctx, id, actor, ActionDeletion, fmt.Sprintf("Incidente eliminado: %s (%d archivos)", incident.Title, len(items)))
	for _, ev := range items {
		if err := s.files.Remove(ev.StoredPath); err != nil {
			s.logger.Warnf("evidence file removal failed for %s: %v", ev.StoredPath, err)
		}
	}
	if err := s.incidents.DeleteIncident(ctx, id); err != nil {
		return err
	}
	s.files.RemoveIncidentDir(id)
	return nil
}

// AddEvidence stores files for an existing incident. Partial success
// is the normal case: each rejection is reported and the rest of the
// batch continues.
func (s *Service) AddEvidence(ctx context.Context, id int64, files []UploadFile, actor string) (*AttachResult, error) {
	if _, err := s.incidents.GetIncident(ctx, id); err != nil {
		return nil, err
	}
	return s.attachFiles(ctx, id, files, actor), nil
}

func (s *Service) attachFiles(ctx context.Context, incidentID int64, files []UploadFile, actor string) *AttachResult {
	result := &AttachResult{}
	for _, f := range files {
		ev, reason := s.attachOne(ctx, incidentID, f, actor)
		if ev != nil {
			result.Accepted = append(result.Accepted, *ev)
			continue
		}
		s.logger.Warnf("evidence rejected for incident %d: %s (%s)", incidentID, f.Name, reason)
		result.Rejected = append(result.Rejected, RejectedFile{Filename: f.Name, Reason: reason})
	}
	return result
}

func (s *Service) attachOne(ctx context.Context, incidentID int64, f UploadFile, actor string) (*store.Evidence, string) {
	category, err := s.validator.Validate(f.Name, f.Size)
	if err != nil {
		return nil, err.Error()
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Sprintf("read failed: %v", err)
	}
	data, err := io.ReadAll(io.LimitReader(rc, s.validator.MaxBytes()+1))
	rc.Close()
	if err != nil {
		return nil, fmt.Sprintf("read failed: %v", err)
	}
	if int64(len(data)) > s.validator.MaxBytes() {
		return nil, fmt.Sprintf("file exceeds %d bytes", s.validator.MaxBytes())
	}
	path, err := s.files.Save(incidentID, f.Name, data)
	if err != nil {
		// No row without a file: skip this one, siblings proceed.
		return nil, fmt.Sprintf("storage failed: %v", err)
	}
	ev := &store.Evidence{
		IncidentID: incidentID,
		Filename:   evidence.SanitizeFilename(f.Name),
		StoredPath: path,
		Category:   string(category),
		SizeBytes:  int64(len(data)),
		SHA256:     utils.Sha256Hex(data),
	}
	if category == evidence.CategoryImage && s.cfg.Previews.Enabled {
		preview, contentType := s.previewer.BuildPreview(data)
		if contentType != "" {
			ev.Preview = preview
			ev.PreviewType = contentType
		}
	}
	if _, err := s.evidence.AddEvidence(ctx, ev); err != nil {
		// The row failed after the file was written; the file is an
		// accepted orphan, not retried.
		s.logger.Errorf("evidence row insert failed for %s: %v", path, err)
		return nil, fmt.Sprintf("persistence failed: %v", err)
	}
	s.record(ctx, incidentID, actor, ActionEvidenceAdded, fmt.Sprintf("Evidencia añadida: %s (%d bytes)", ev.Filename, ev.SizeBytes))
	return ev, ""
}

func (s *Service) ListEvidence(ctx context.Context, incidentID int64) ([]store.Evidence, error) {
	if _, err := s.incidents.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.evidence.ListEvidence(ctx, incidentID)
}

func (s *Service) GetEvidence(ctx context.Context, evidenceID int64) (*store.Evidence, error) {
	return s.evidence.GetEvidence(ctx, evidenceID)
}

// EvidenceContent serves the bytes for a download or an inline view.
// Views prefer the normalized preview when one exists; downloads
// always get the original file.
func (s *Service) EvidenceContent(ctx context.Context, evidenceID int64, inline bool, actor string) (*store.Evidence, []byte, string, error) {
	ev, err := s.evidence.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, nil, "", err
	}
	if inline && ev.HasPreview() {
		s.record(ctx, ev.IncidentID, actor, ActionEvidenceViewed, fmt.Sprintf("Evidencia vista: %s", ev.Filename))
		return ev, ev.Preview, ev.PreviewType, nil
	}
	data, err := s.files.Read(ev.StoredPath)
	if err != nil {
		return nil, nil, "", err
	}
	action, detail := ActionEvidenceDownloaded, "Evidencia descargada"
	if inline {
		action, detail = ActionEvidenceViewed, "Evidencia vista"
	}
	s.record(ctx, ev.IncidentID, actor, action, fmt.Sprintf("%s: %s", detail, ev.Filename))
	return ev, data, "", nil
}

func (s *Service) DeleteEvidence(ctx context.Context, evidenceID int64, actor string) error {
	ev, err := s.evidence.GetEvidence(ctx, evidenceID)
	if err != nil {
		return err
	}
	if err := s.evidence.DeleteEvidence(ctx, evidenceID); err != nil {
		return err
	}
	if err := s.files.Remove(ev.StoredPath); err != nil {
		s.logger.Warnf("evidence file removal failed for %s: %v", ev.StoredPath, err)
	}
	s.record(ctx, ev.IncidentID, actor, ActionEvidenceDeleted, fmt.Sprintf("Evidencia eliminada: %s", ev.Filename))
	return nil
}

// ExportArchive bundles every evidence file that still exists into one
// zip. Zero evidence rows is a distinct outcome (ErrNoEvidence), not a
// zero-byte archive.
func (s *Service) ExportArchive(ctx context.Context, incidentID int64, actor string) (*Archive, error) {
	incident, err := s.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	items, err := s.evidence.ListEvidence(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoEvidence
	}
	entries := make([]evidence.ZipEntry, 0, len(items))
	for _, ev := range items {
		entries = append(entries, evidence.ZipEntry{DisplayName: ev.Filename, Path: ev.StoredPath})
	}
	data, included, err := s.files.Zip(entries)
	if err != nil {
		return nil, err
	}
	s.record(ctx, incidentID, actor, ActionFullDownload, fmt.Sprintf("Descarga completa: %d archivos", included))
	return &Archive{
		Filename:  fmt.Sprintf("incidente_%d_evidencias.zip", incident.ID),
		Data:      data,
		FileCount: included,
	}, nil
}

func (s *Service) History(ctx context.Context, incidentID int64, limit int) ([]store.HistoryEntry, error) {
	if _, err := s.incidents.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.history.ListByIncident(ctx, incidentID, limit)
}

type HistoryPage struct {
	Items    []store.HistoryEntry `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

func (s *Service) HistoryAll(ctx context.Context, page, pageSize int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.EffectivePageSize()
	}
	total, err := s.history.CountEntries(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.history.ListAll(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Service) Dashboard(ctx context.Context) (store.DashboardCounts, error) {
	return s.incidents.DashboardCounts(ctx)
}
