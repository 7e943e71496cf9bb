package manifest

import "github.com/starford/kenaz-export/internal/models"

// Recorder defines the manifest operations used by the export service.
type Recorder interface {
	BeginRun(source, destination string) (*models.Run, error)
	RecordFile(rec models.FileRecord, unresolved []string) error
	FinishRun(run *models.Run) error
	LatestRun() (*models.Run, error)
	Files(runID, status string) ([]models.FileRecord, error)
	UnresolvedLinks(runID string) ([]models.UnresolvedLink, error)
	Close() error
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)
