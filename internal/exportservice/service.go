// Package exportservice coordinates exporter runs with the run manifest and
// live progress events.
package exportservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/checksum"
	"github.com/starford/kenaz-export/internal/manifest"
	"github.com/starford/kenaz-export/internal/models"
	"github.com/starford/kenaz-export/pkg/export"
)

// Publisher receives run and file events.
type Publisher interface {
	PublishRunEvent(kind string, data any)
	PublishFileEvent(status, path string)
}

// RunSummary is the payload of run events and the result of Export.
type RunSummary struct {
	Run        *models.Run         `json:"run"`
	Files      []models.FileRecord `json:"files,omitempty"`
	Unresolved int                 `json:"unresolved"`
}

// Service runs exports of one vault into one destination.
type Service struct {
	source      string
	destination string
	opts        []export.Option
	db          manifest.Recorder
	events      Publisher
	observer    export.Observer
	logger      *slog.Logger

	running atomic.Bool

	mu             sync.RWMutex
	last           *models.Run
	lastFiles      []models.FileRecord
	lastUnresolved []models.UnresolvedLink
}

// Option configures a Service.
type Option func(*Service)

// WithManifest records every run in db.
func WithManifest(db manifest.Recorder) Option {
	return func(s *Service) { s.db = db }
}

// WithPublisher sends run and file events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithObserver is called with every file result of an export, after it has
// been recorded.
func WithObserver(o export.Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a service exporting source into destination with the given
// exporter options.
func New(source, destination string, exportOpts []export.Option, opts ...Option) *Service {
	s := &Service{
		source:      source,
		destination: destination,
		opts:        exportOpts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source returns the vault path.
func (s *Service) Source() string { return s.source }

func (s *Service) exporter(extra ...export.Option) *export.Exporter {
	opts := make([]export.Option, 0, len(s.opts)+len(extra)+1)
	opts = append(opts, export.WithLogger(s.logger))
	opts = append(opts, s.opts...)
	opts = append(opts, extra...)
	return export.New(s.source, s.destination, opts...)
}

// Export runs one export. Only one run may be active at a time; a concurrent
// call returns apperr.ErrRunInProgress. Per-file failures are part of the
// summary, the returned error is structural (or the first failure when
// fail-fast is configured).
func (s *Service) Export(ctx context.Context) (*RunSummary, error) {
	if s.destination == "" {
		return nil, fmt.Errorf("%w: destination is required", apperr.ErrInvalidInput)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperr.ErrRunInProgress
	}
	defer s.running.Store(false)

	run, err := s.begin()
	if err != nil {
		return nil, err
	}
	s.publishRun("started", &RunSummary{Run: run})

	root := s.sourceRoot()
	var (
		files      []models.FileRecord
		unresolved []models.UnresolvedLink
	)
	observe := func(res export.FileResult) {
		rec := models.FileRecord{
			RunID:       run.ID,
			Path:        res.Path,
			Destination: res.Destination,
			Status:      string(res.Status),
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		if sum, err := checksum.SumFile(filepath.Join(root, filepath.FromSlash(res.Path))); err == nil {
			rec.Checksum = sum
		}
		files = append(files, rec)
		for _, target := range res.Unresolved {
			unresolved = append(unresolved, models.UnresolvedLink{RunID: run.ID, Source: res.Path, Target: target})
		}
		if s.db != nil {
			if err := s.db.RecordFile(rec, res.Unresolved); err != nil {
				s.logger.Warn("manifest: record file failed",
					slog.String("run_id", run.ID),
					slog.String("path", res.Path),
					slog.String("error", err.Error()))
			}
		}
		if s.events != nil {
			s.events.PublishFileEvent(rec.Status, rec.Path)
		}
		if s.observer != nil {
			s.observer(res)
		}
	}

	report, runErr := s.exporter(export.WithObserver(observe)).Run(ctx)
	if report != nil {
		run.Exported = report.Exported
		run.Skipped = report.Skipped
		run.Failed = report.Failed
		run.Assets = report.Assets
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if s.db != nil {
		if err := s.db.FinishRun(run); err != nil {
			s.logger.Warn("manifest: finish run failed", slog.String("run_id", run.ID), slog.String("error", err.Error()))
		}
	} else if report != nil {
		finished := report.Finished
		run.FinishedAt = &finished
	}

	s.mu.Lock()
	s.last, s.lastFiles, s.lastUnresolved = run, files, unresolved
	s.mu.Unlock()

	summary := &RunSummary{Run: run, Files: files, Unresolved: len(unresolved)}
	s.publishRun("finished", summary)
	return summary, runErr
}

func (s *Service) begin() (*models.Run, error) {
	if s.db == nil {
		return &models.Run{Source: s.source, Destination: s.destination}, nil
	}
	run, err := s.db.BeginRun(s.source, s.destination)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Service) publishRun(kind string, summary *RunSummary) {
	if s.events != nil {
		s.events.PublishRunEvent(kind, summary)
	}
}

// sourceRoot is the directory vault-relative paths are resolved against.
func (s *Service) sourceRoot() string {
	if info, err := os.Stat(s.source); err == nil && !info.IsDir() {
		return filepath.Dir(s.source)
	}
	return s.source
}

// Running reports whether an export is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Render returns the exported text of one vault-relative note without
// writing anything.
func (s *Service) Render(_ context.Context, path string) (string, error) {
	out, err := s.exporter().Render(path)
	if err != nil {
		if errors.Is(err, export.ErrPathDoesNotExist) {
			return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return "", err
	}
	return string(out), nil
}

// Resolution is the answer to a link lookup.
type Resolution struct {
	Target string `json:"target"`
	Link   string `json:"link"`
}

// Resolve resolves a wikilink target as seen from the note at from.
func (s *Service) Resolve(_ context.Context, target, from string) (*Resolution, error) {
	resolved, link, err := s.exporter().ResolveLink(target, from)
	if err != nil {
		if errors.Is(err, export.ErrPathDoesNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, target)
		}
		return nil, err
	}
	return &Resolution{Target: resolved, Link: link}, nil
}

// LatestRun returns the most recent run, from the manifest when one is
// configured.
func (s *Service) LatestRun(_ context.Context) (*models.Run, error) {
	if s.db != nil {
		return s.db.LatestRun()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, apperr.ErrNotFound
	}
	run := *s.last
	return &run, nil
}

// LatestFiles returns the file records of the latest run, optionally
// filtered by status.
func (s *Service) LatestFiles(_ context.Context, status string) ([]models.FileRecord, error) {
	if s.db != nil {
		run, err := s.db.LatestRun()
		if err != nil {
			return nil, err
		}
		return s.db.Files(run.ID, status)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, apperr.ErrNotFound
	}
	out := []models.FileRecord{}
	for _, f := range s.lastFiles {
		if status == "" || f.Status == status {
			out = append(out, f)
		}
	}
	return out, nil
}

// LatestUnresolved returns the unresolved links of the latest run.
func (s *Service) LatestUnresolved(_ context.Context) ([]models.UnresolvedLink, error) {
	if s.db != nil {
		run, err := s.db.LatestRun()
		if err != nil {
			return nil, err
		}
		return s.db.UnresolvedLinks(run.ID)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, apperr.ErrNotFound
	}
	return append([]models.UnresolvedLink{}, s.lastUnresolved...), nil
}
