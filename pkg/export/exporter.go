// Package export turns a vault of interlinked notes into plain markdown.
//
// An Exporter indexes the vault once, then exports every root note: its
// wikilinks are rewritten into portable links, its embeds are inlined
// (recursively, with cycle and depth protection), the result is passed
// through an ordered postprocessor chain and finally written together with
// the assets it references.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/kenaz-export/internal/storage"
	"github.com/starford/kenaz-export/pkg/frontmatter"
	"github.com/starford/kenaz-export/pkg/markdown"
)

// ErrSkipped is returned by Render when the root chain vetoes the note.
var ErrSkipped = errors.New("note skipped by postprocessor")

// Exporter exports a vault, or a single note, to a destination.
type Exporter struct {
	source      string
	destination string
	startAt     string

	strategy      FrontmatterStrategy
	linkFormat    LinkFormat
	recursive     bool
	preserveMtime bool
	ignore        IgnoreRules
	maxDepth      int
	workers       int
	failFast      bool

	chain      *Chain
	embedChain *Chain
	logger     *slog.Logger

	plan      func(notes int)
	observer  Observer
	observeMu sync.Mutex
}

// New creates an Exporter reading from source (a vault directory or a single
// note) and writing to destination.
func New(source, destination string, opts ...Option) *Exporter {
	e := &Exporter{
		source:      source,
		destination: destination,
		recursive:   true,
		maxDepth:    DefaultMaxDepth,
		workers:     1,
		chain:       NewChain(),
		embedChain:  NewChain(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run holds the state shared by the notes of one Run.
type run struct {
	index    *Index
	store    storage.Provider
	report   *Report
	baseRel  string // vault-relative directory mirrored into destBase, "" for the root
	destBase string
	single   string // vault-relative path when exporting a single file
	fileDest string
	notes    []string

	mu     sync.Mutex
	copied map[string]struct{}
}

// destination maps a vault-relative file to its output path. Files outside the
// exported subtree have none.
func (r *run) destination(rel string) (string, bool) {
	if r.single != "" && rel == r.single {
		return r.fileDest, true
	}
	sub := rel
	if r.baseRel != "" {
		if !strings.HasPrefix(rel, r.baseRel+"/") {
			return "", false
		}
		sub = rel[len(r.baseRel)+1:]
	}
	return filepath.Join(r.destBase, filepath.FromSlash(sub)), true
}

// Run exports every root note. The returned error is structural (bad source,
// start-at or destination) and nothing is written in that case. Per-file
// failures are collected in the Report unless fail-fast is set, in which case
// the first one is returned alongside the partial report.
func (e *Exporter) Run(ctx context.Context) (*Report, error) {
	r, err := e.prepare()
	if err != nil {
		return nil, err
	}
	r.report = &Report{Started: time.Now()}

	e.logger.Info("export started",
		slog.String("source", e.source),
		slog.String("destination", r.destBase),
		slog.Int("notes", len(r.notes)))
	if e.plan != nil {
		e.plan(len(r.notes))
	}

	if r.single != "" && len(r.notes) == 0 {
		if err := e.copyAsset(r, r.single); err != nil {
			res := FileResult{Path: r.single, Status: StatusFailed, Err: &FileExportError{Path: r.single, Err: err}}
			e.record(r, res)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, rel := range r.notes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := e.exportNote(r, rel)
			e.record(r, res)
			if e.failFast && res.Err != nil {
				return res.Err
			}
			return nil
		})
	}
	err = g.Wait()
	r.report.finish()

	e.logger.Info("export finished",
		slog.Int("exported", r.report.Exported),
		slog.Int("skipped", r.report.Skipped),
		slog.Int("failed", r.report.Failed),
		slog.Int("assets", r.report.Assets))

	return r.report, err
}

func (e *Exporter) record(r *run, res FileResult) {
	r.report.add(res)
	if e.observer == nil {
		return
	}
	e.observeMu.Lock()
	defer e.observeMu.Unlock()
	e.observer(res)
}

// prepare validates paths and builds the index. Nothing is written.
func (e *Exporter) prepare() (*run, error) {
	idx, err := BuildIndex(e.source, e.ignore)
	if err != nil {
		return nil, err
	}
	target, err := e.target(idx)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathDoesNotExist, target)
	}
	dest, err := filepath.Abs(e.destination)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	r := &run{index: idx, copied: make(map[string]struct{})}
	rel, err := filepath.Rel(idx.Root(), target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStartAtOutsideRoot, target)
	}
	rel = filepath.ToSlash(rel)

	if info.IsDir() {
		dInfo, err := os.Stat(dest)
		if err != nil || !dInfo.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrPathDoesNotExist, e.destination)
		}
		if rel == "." {
			rel = ""
		}
		r.baseRel, r.destBase = rel, dest
		for _, n := range idx.Notes() {
			if rel == "" || strings.HasPrefix(n, rel+"/") {
				r.notes = append(r.notes, n)
			}
		}
	} else {
		if dInfo, err := os.Stat(dest); err == nil && dInfo.IsDir() {
			r.fileDest = filepath.Join(dest, filepath.Base(target))
		} else {
			parent, err := os.Stat(filepath.Dir(dest))
			if err != nil || !parent.IsDir() {
				return nil, fmt.Errorf("%w: %s", ErrPathDoesNotExist, filepath.Dir(dest))
			}
			r.fileDest = dest
		}
		r.single, r.destBase = rel, filepath.Dir(r.fileDest)
		if dir := path.Dir(rel); dir != "." {
			r.baseRel = dir
		}
		if IsNote(rel) {
			r.notes = []string{rel}
		}
	}

	store, err := storage.NewFS(r.destBase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPathDoesNotExist, err)
	}
	r.store = store
	return r, nil
}

// target returns the absolute path being exported: the source, or the
// start-at path inside it.
func (e *Exporter) target(idx *Index) (string, error) {
	src, err := filepath.Abs(e.source)
	if err != nil {
		return "", fmt.Errorf("resolve source: %w", err)
	}
	if e.startAt == "" {
		return src, nil
	}
	sa, err := filepath.Abs(e.startAt)
	if err != nil {
		return "", fmt.Errorf("resolve start-at: %w", err)
	}
	rel, err := filepath.Rel(idx.Root(), sa)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrStartAtOutsideRoot, e.startAt)
	}
	if _, err := os.Stat(sa); err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathDoesNotExist, e.startAt)
	}
	return sa, nil
}

func (e *Exporter) exportNote(r *run, rel string) FileResult {
	res := FileResult{Path: rel, Status: StatusFailed}
	fail := func(err error) FileResult {
		res.Err = &FileExportError{Path: rel, Err: err}
		e.logger.Warn("export failed", slog.String("path", rel), slog.String("error", err.Error()))
		return res
	}

	dest, _ := r.destination(rel)
	c, events, skipped, err := e.render(r.index, rel, dest)
	if err != nil {
		return fail(err)
	}
	res.Unresolved = c.unresolved
	if skipped {
		res.Status = StatusSkipped
		e.logger.Debug("note skipped", slog.String("path", rel))
		return res
	}

	if err := e.commit(r, c, events); err != nil {
		return fail(err)
	}
	res.Status = StatusExported
	res.Destination = c.Destination
	res.Assets = c.assets
	return res
}

type note struct {
	fm       *frontmatter.Frontmatter
	hadBlock bool
	events   markdown.Events
}

func readNote(idx *Index, rel string) (*note, error) {
	data, err := os.ReadFile(idx.Abs(rel))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, rel, err)
	}
	fm, body, err := frontmatter.Split(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFrontmatterDecode, rel, err)
	}
	return &note{fm: fm, hadBlock: fm != nil, events: markdown.Tokenize(body)}, nil
}

// render resolves a root note and runs the root chain. skipped reports a
// StopAndSkipNote veto; the context is still returned for its bookkeeping.
func (e *Exporter) render(idx *Index, rel, dest string) (c *Context, events markdown.Events, skipped bool, err error) {
	n, err := readNote(idx, rel)
	if err != nil {
		return nil, nil, false, err
	}
	c = newContext(rel, rel, idx.Root(), n.fm, n.hadBlock, e.strategy)
	c.Destination = dest

	st := NewRecursionStack(e.maxDepth)
	if err := st.Push(rel); err != nil {
		return nil, nil, false, err
	}
	c.stack = st.Snapshot()

	events, err = e.resolve(idx, c, n.events, st)
	if err != nil {
		return nil, nil, false, err
	}
	if e.chain.Run(c, &events) == StopAndSkipNote {
		return c, nil, true, nil
	}
	return c, events, false, nil
}

// Render exports a single vault-relative note in memory and returns the text
// that would be written. It returns ErrSkipped when the root chain vetoes it.
func (e *Exporter) Render(rel string) ([]byte, error) {
	idx, err := BuildIndex(e.source, e.ignore)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if !idx.Contains(rel) || !IsNote(rel) {
		return nil, fmt.Errorf("%w: %s", ErrPathDoesNotExist, rel)
	}
	c, events, skipped, err := e.render(idx, rel, "")
	if err != nil {
		return nil, &FileExportError{Path: rel, Err: err}
	}
	if skipped {
		return nil, ErrSkipped
	}
	return compose(c, events)
}

// ResolveLink resolves a wikilink target as seen from the note at from and
// returns the vault-relative target and the link that would be written.
func (e *Exporter) ResolveLink(target, from string) (string, string, error) {
	idx, err := BuildIndex(e.source, e.ignore)
	if err != nil {
		return "", "", err
	}
	ref := ParseReference(target)
	resolved, ok := idx.Resolve(ref, from)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrPathDoesNotExist, target)
	}
	return resolved, FormatLink(e.linkFormat, from, resolved, ref.Section), nil
}
