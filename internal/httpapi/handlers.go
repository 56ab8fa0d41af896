package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"

	"github.com/MimeLyc/doctrans/internal/budget"
	"github.com/MimeLyc/doctrans/internal/jobs"
	"github.com/MimeLyc/doctrans/internal/service"
	"github.com/MimeLyc/doctrans/pkg/file"
	"github.com/MimeLyc/doctrans/pkg/log"
)

const (
	// multipart parts above this are spooled to disk
	uploadMemoryBytes = 32 << 20
	// room for the form fields around the file
	uploadOverheadBytes = 1 << 20

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type snapshotResponse struct {
	jobs.Snapshot
	FileSize string `json:"file_size,omitempty"`
}

func newSnapshotResponse(snap jobs.Snapshot) snapshotResponse {
	resp := snapshotResponse{Snapshot: snap}
	if snap.Job != nil && snap.Job.FileSizeBytes > 0 {
		resp.FileSize = humanize.IBytes(uint64(snap.Job.FileSizeBytes))
	}
	return resp
}

// handleTranslations accepts a multipart upload with fields file, target_lang
// and the optional source_lang.
func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, budget.MaxFileBytes+uploadOverheadBytes)
	if err := r.ParseMultipartForm(uploadMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, budget.ErrFileTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	upload, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer upload.Close()

	target, err := parseTargetLanguage(r.FormValue("target_lang"), s.defaultTarget)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	source, err := parseSourceLanguage(r.FormValue("source_lang"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.workflow.Start(r.Context(), &jobs.FreshDocument{
		FileName: file.SanitizeName(header.Filename),
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     upload,
	}, source, target)
	if err != nil {
		writeError(w, statusForError(err), service.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusAccepted, newSnapshotResponse(snap))
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(s.workflow.Snapshot()))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(s.workflow.Cancel(r.Context())))
}

type visibilityRequest struct {
	State string `json:"state"`
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	resumed := false
	switch strings.ToLower(req.State) {
	case "hidden":
		s.workflow.Hide(r.Context())
	case "visible":
		resumed = s.workflow.Show(r.Context())
	default:
		writeError(w, http.StatusBadRequest, `state must be "hidden" or "visible"`)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resumed":  resumed,
		"snapshot": newSnapshotResponse(s.workflow.Snapshot()),
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, ok := s.workflow.LastResult()
	if !ok {
		writeError(w, http.StatusNotFound, "no translated document available")
		return
	}

	w.Header().Set("Content-Type", budget.DetectKind(result.FileName, "").MimeType())
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		log.Warn("Failed to send %s: %v", result.FileName, err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.history.ListHistory(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	if s.maintenance == nil {
		writeError(w, http.StatusNotImplemented, "maintenance is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, err := s.maintenance.NextRun(time.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, info)
	case http.MethodPost:
		report, err := s.maintenance.Run(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"stage": s.workflow.Snapshot().Stage,
	})
}

// parseTargetLanguage canonicalizes a BCP 47 tag; regional variants are kept
// since the provider distinguishes e.g. EN-GB and EN-US.
func parseTargetLanguage(raw string, fallback language.Tag) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback.String(), nil
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", errors.New("invalid target_lang: " + raw)
	}
	return tag.String(), nil
}

// parseSourceLanguage returns the base language only. Empty means auto-detect.
func parseSourceLanguage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", errors.New("invalid source_lang: " + raw)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

func statusForError(err error) int {
	switch {
	case service.IsErrorType(err, service.ErrValidation):
		return http.StatusBadRequest
	case service.IsErrorType(err, service.ErrBusy), service.IsErrorType(err, service.ErrCancelled):
		return http.StatusConflict
	case service.IsErrorType(err, service.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
