package export

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Status is the outcome of exporting one root note.
type Status string

const (
	StatusExported Status = "exported"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// FileResult describes what happened to one root note.
type FileResult struct {
	Path        string // vault-relative source path
	Destination string // absolute output path, empty when nothing was written
	Status      Status
	Err         error // *FileExportError when Status is StatusFailed
	Assets      []string
	Unresolved  []string
}

// Report summarizes a run.
type Report struct {
	Started  time.Time
	Finished time.Time
	Files    []FileResult
	Exported int
	Skipped  int
	Failed   int
	Assets   int

	mu sync.Mutex
}

func (r *Report) add(res FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files = append(r.Files, res)
	switch res.Status {
	case StatusExported:
		r.Exported++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

func (r *Report) addAssets(n int) {
	r.mu.Lock()
	r.Assets += n
	r.mu.Unlock()
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = time.Now()
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].Path < r.Files[j].Path })
}

// Err joins every per-file error, or returns nil.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errors.Join(errs...)
}

// Result returns the result for a vault-relative path.
func (r *Report) Result(path string) (FileResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileResult{}, false
}
