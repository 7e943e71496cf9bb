// Package watch re-exports a vault when its files change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger is called once a burst of changes has settled. changed holds the
// vault-relative paths (slash-separated, sorted) seen during the burst.
type Trigger func(ctx context.Context, changed []string)

// Options configures Watch.
type Options struct {
	Root     string
	Debounce time.Duration
	// Exclude lists directories whose events are ignored, typically an
	// export destination placed inside the vault.
	Exclude []string
	Logger  *slog.Logger
}

// Watch starts an fsnotify watcher on the vault root and calls trigger after
// each debounced burst of changes until ctx is cancelled. Triggers never
// overlap: events arriving while trigger runs start a new burst.
//
// New directories created at runtime are automatically added to the watch
// list. Hidden entries and temporary files left by atomic writes are ignored.
// When Root is a single file only that file's events count.
func Watch(ctx context.Context, opts Options, trigger Trigger) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	// A single note is watched through its directory.
	var only string
	if info, statErr := os.Stat(root); statErr == nil && !info.IsDir() {
		only, root = root, filepath.Dir(root)
	}
	exclude := make([]string, 0, len(opts.Exclude))
	for _, dir := range opts.Exclude {
		if abs, err := filepath.Abs(dir); err == nil {
			exclude = append(exclude, abs)
		}
	}
	excluded := func(path string) bool {
		for _, dir := range exclude {
			if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if only != "" {
		err = w.Add(root)
	} else {
		err = addDirsRecursive(w, root, excluded)
	}
	if err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root), slog.String("file", only))

	var timer *time.Timer
	var fire <-chan time.Time
	pending := make(map[string]struct{})

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			timer, fire = nil, nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			logger.Debug("watcher: change settled", slog.Int("files", len(changed)))
			trigger(ctx, changed)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			if only != "" && absPath != only {
				continue
			}
			if excluded(absPath) || ignoredName(filepath.Base(absPath)) {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil || rel == "." {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath, excluded); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			pending[filepath.ToSlash(rel)] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func ignoredName(name string) bool {
	return strings.HasPrefix(name, ".kenaz-export-tmp-") ||
		(strings.HasPrefix(name, ".") && name != ".export-ignore" && name != ".gitignore")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, excluded func(string) bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (excluded(path) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
