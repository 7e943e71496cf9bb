package internal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/kenaz-export/internal/testutil"
	"github.com/starford/kenaz-export/pkg/export"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Export.Source = testutil.Vault(t, map[string]string{
		"Index.md":  "---\npublish: true\n---\n![[Part]] [[Lost]]\n",
		"Part.md":   "part body\n",
		"Broken.md": "---\n[x\n---\n",
	})
	cfg.Export.Destination = t.TempDir()
	cfg.Export.Postprocessors = []PostprocessorConfig{{Name: "only_published"}}
	cfg.Manifest.Path = filepath.Join(t.TempDir(), "manifest.db")
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExportAndReport(t *testing.T) {
	cfg := testConfig(t)
	planned := 0
	var seen []string
	opts := []Option{
		WithConfig(cfg),
		WithLogger(quietLogger()),
		WithProgress(func(n int) { planned = n }, func(r export.FileResult) { seen = append(seen, r.Path) }),
	}

	summary, err := Export(context.Background(), opts...)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if summary.Run.Exported != 1 || summary.Run.Skipped != 1 || summary.Run.Failed != 1 {
		t.Errorf("run = %+v", summary.Run)
	}
	if planned != 3 || len(seen) != 3 {
		t.Errorf("planned=%d seen=%v", planned, seen)
	}
	got := testutil.ReadFile(t, filepath.Join(cfg.Export.Destination, "Index.md"))
	if got != "---\npublish: true\n---\n\npart body *Lost*\n" {
		t.Errorf("Index.md = %q", got)
	}

	rep, err := Report(context.Background(), opts...)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if rep.Run.ID != summary.Run.ID || len(rep.Failed) != 1 || len(rep.Unresolved) != 1 {
		t.Errorf("report = %+v", rep)
	}
}

func TestRender(t *testing.T) {
	cfg := testConfig(t)
	out, err := Render(context.Background(), "Index.md", WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if out != "---\npublish: true\n---\n\npart body *Lost*\n" {
		t.Errorf("render = %q", out)
	}
}

func TestReport_RequiresManifest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Manifest.Path = ""
	if _, err := Report(context.Background(), WithConfig(cfg), WithLogger(quietLogger())); err == nil {
		t.Error("expected error without manifest")
	}
}

func TestExport_RequiresConfig(t *testing.T) {
	if _, err := Export(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
