package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/pkg/export"
)

// Handler holds API route handlers.
type Handler struct {
	svc *exportservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *exportservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/render/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// StartExport handles POST /api/exports. The request blocks until the run
// finishes; per-file failures (including a fail-fast stop) are part of the
// 200 response.
func (h *Handler) StartExport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Export(r.Context())
	var fileErr *export.FileExportError
	if err != nil && !errors.As(err, &fileErr) {
		writeError(w, "export", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// LatestRun handles GET /api/exports/latest.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.LatestRun(r.Context())
	if err != nil {
		writeError(w, "latest run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// LatestFiles handles GET /api/exports/latest/files?status=.
func (h *Handler) LatestFiles(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch export.Status(status) {
	case "", export.StatusExported, export.StatusSkipped, export.StatusFailed:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("status must be exported, skipped or failed"))
		return
	}
	files, err := h.svc.LatestFiles(r.Context(), status)
	if err != nil {
		writeError(w, "latest files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files)})
}

// LatestUnresolved handles GET /api/exports/latest/unresolved.
func (h *Handler) LatestUnresolved(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.LatestUnresolved(r.Context())
	if err != nil {
		writeError(w, "latest unresolved", err)
		return
	}
	writeJSON(w, http.StatusOK, UnresolvedResponse{Links: links, Total: len(links)})
}

// Render handles GET /api/render/*. It returns the exported Markdown, or JSON
// when the client asks for it.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	out, err := h.svc.Render(r.Context(), path)
	if err != nil {
		writeError(w, "render", err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, RenderResponse{Path: path, Content: out})
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// Resolve handles GET /api/resolve?target=&from=.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, from := q.Get("target"), q.Get("from")
	if target == "" || from == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("target and from are required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), target, from)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
