package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu     sync.Mutex
	bursts [][]string
}

func (r *recorder) trigger(_ context.Context, changed []string) {
	r.mu.Lock()
	r.bursts = append(r.bursts, changed)
	r.mu.Unlock()
}

func (r *recorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bursts {
		for _, p := range b {
			if p == path {
				return true
			}
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bursts)
}

func start(t *testing.T, opts Options, r *recorder) {
	t.Helper()
	opts.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = Watch(ctx, opts, r.trigger)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	r := &recorder{}
	start(t, Options{Root: root, Debounce: 200 * time.Millisecond}, r)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_ = os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return r.seen("a.md") && r.seen("b.md") && r.seen("c.md")
	}, "burst not delivered")
	if n := r.count(); n != 1 {
		t.Errorf("bursts = %d, want 1", n)
	}
}

func TestWatch_NewDirWatched(t *testing.T) {
	root := t.TempDir()
	r := &recorder{}
	start(t, Options{Root: root, Debounce: 50 * time.Millisecond}, r)

	sub := filepath.Join(root, "subdir")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return r.seen("subdir/deep.md")
	}, "file in new subdir not reported")
}

func TestWatch_IgnoresExcludedAndTemporary(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	_ = os.MkdirAll(out, 0o755)
	r := &recorder{}
	start(t, Options{Root: root, Debounce: 50 * time.Millisecond, Exclude: []string{out}}, r)

	_ = os.WriteFile(filepath.Join(out, "Note.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, ".kenaz-export-tmp-123"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "real.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return r.seen("real.md")
	}, "real change not reported")

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bursts {
		for _, p := range b {
			if strings.HasPrefix(p, "out/") || strings.HasPrefix(p, ".kenaz") {
				t.Errorf("unexpected change %s", p)
			}
		}
	}
}

func TestWatch_SingleFile(t *testing.T) {
	root := t.TempDir()
	note := filepath.Join(root, "Note.md")
	_ = os.WriteFile(note, []byte("x"), 0o644)
	r := &recorder{}
	start(t, Options{Root: note, Debounce: 50 * time.Millisecond}, r)

	_ = os.WriteFile(filepath.Join(root, "Other.md"), []byte("y"), 0o644)
	_ = os.WriteFile(note, []byte("changed"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return r.seen("Note.md")
	}, "change to the watched note not reported")
	if r.seen("Other.md") {
		t.Error("sibling files must not trigger a single-note export")
	}
}

func TestIgnoredName(t *testing.T) {
	cases := map[string]bool{
		".kenaz-export-tmp-1": true,
		".DS_Store":           true,
		".export-ignore":      false,
		".gitignore":          false,
		"Note.md":             false,
	}
	for name, want := range cases {
		if got := ignoredName(name); got != want {
			t.Errorf("ignoredName(%q) = %v, want %v", name, got, want)
		}
	}
}
