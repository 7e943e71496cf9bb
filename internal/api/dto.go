package api

import (
	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/internal/models"
)

// RunSummary is returned after an export (aliased from the domain layer).
type RunSummary = exportservice.RunSummary

// Resolution is the response of a link lookup (aliased from the domain layer).
type Resolution = exportservice.Resolution

// FileListResponse wraps the file records of a run.
type FileListResponse struct {
	Files []models.FileRecord `json:"files"`
	Total int                 `json:"total"`
}

// UnresolvedResponse wraps the unresolved links of a run.
type UnresolvedResponse struct {
	Links []models.UnresolvedLink `json:"links"`
	Total int                     `json:"total"`
}

// RenderResponse carries the exported text of one note.
type RenderResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
