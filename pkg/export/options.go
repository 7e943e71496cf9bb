package export

import (
	"fmt"
	"log/slog"
	"strings"
)

// FrontmatterStrategy decides whether a frontmatter block is written.
type FrontmatterStrategy int

const (
	// FrontmatterAuto writes a block when the source note had one or the
	// mapping is non-empty after postprocessing.
	FrontmatterAuto FrontmatterStrategy = iota
	// FrontmatterAlways writes a block for every note, empty if need be.
	FrontmatterAlways
	// FrontmatterNever writes only the body.
	FrontmatterNever
)

func (s FrontmatterStrategy) String() string {
	switch s {
	case FrontmatterAlways:
		return "always"
	case FrontmatterNever:
		return "never"
	}
	return "auto"
}

// ParseFrontmatterStrategy parses "auto" (or empty), "always" and "never".
func ParseFrontmatterStrategy(s string) (FrontmatterStrategy, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FrontmatterAuto, nil
	case "always":
		return FrontmatterAlways, nil
	case "never":
		return FrontmatterNever, nil
	}
	return FrontmatterAuto, fmt.Errorf("unknown frontmatter strategy %q", s)
}

// Observer is called once per root note as soon as its result is known.
// Calls are serialized.
type Observer func(FileResult)

// Option is a functional option for configuring an Exporter.
type Option func(*Exporter)

// WithFrontmatterStrategy sets when frontmatter is written.
func WithFrontmatterStrategy(s FrontmatterStrategy) Option {
	return func(e *Exporter) { e.strategy = s }
}

// WithLinkFormat sets the output style of resolved links.
func WithLinkFormat(f LinkFormat) Option {
	return func(e *Exporter) { e.linkFormat = f }
}

// WithRecursiveEmbeds controls whether embeds inside embedded notes are
// expanded. When disabled they are written as links.
func WithRecursiveEmbeds(on bool) Option {
	return func(e *Exporter) { e.recursive = on }
}

// WithPreserveMtime copies the source modification time onto written files.
func WithPreserveMtime(on bool) Option {
	return func(e *Exporter) { e.preserveMtime = on }
}

// WithStartAt restricts the export to a file or directory inside the vault.
// Links may still point anywhere in the vault.
func WithStartAt(path string) Option {
	return func(e *Exporter) { e.startAt = path }
}

// WithIgnoreRules sets the rules used when indexing the vault.
func WithIgnoreRules(r IgnoreRules) Option {
	return func(e *Exporter) { e.ignore = r }
}

// WithMaxDepth sets the embed depth limit, counting the root note.
func WithMaxDepth(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithWorkers sets how many root notes are exported concurrently.
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPostprocessors appends to the chain run on every root note.
func WithPostprocessors(p ...Postprocessor) Option {
	return func(e *Exporter) {
		for _, pp := range p {
			e.chain.Add(pp)
		}
	}
}

// WithEmbedPostprocessors appends to the chain run on every embedded note.
func WithEmbedPostprocessors(p ...Postprocessor) Option {
	return func(e *Exporter) {
		for _, pp := range p {
			e.embedChain.Add(pp)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFailFast makes Run stop at and return the first per-file error.
func WithFailFast(on bool) Option {
	return func(e *Exporter) { e.failFast = on }
}

// WithPlan registers a callback receiving the number of root notes once the
// run is prepared and before any of them is exported.
func WithPlan(fn func(notes int)) Option {
	return func(e *Exporter) { e.plan = fn }
}

// WithObserver registers a callback for per-file results.
func WithObserver(o Observer) Option {
	return func(e *Exporter) { e.observer = o }
}
