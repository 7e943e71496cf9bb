package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/starford/kenaz-export/internal"
	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/internal/models"
)

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)
	p.Summary(&exportservice.RunSummary{
		Run: &models.Run{Exported: 3, Skipped: 1, Failed: 1, Assets: 2},
		Files: []models.FileRecord{
			{Path: "ok.md", Status: "exported"},
			{Path: "bad.md", Status: "failed", Error: "boom"},
		},
		Unresolved: 2,
	})
	out := buf.String()
	for _, want := range []string{"exported 3", "failed 1", "bad.md", "boom", "2 unresolved links"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ok.md") {
		t.Errorf("exported files should not be listed:\n%s", out)
	}
}

func TestPrinter_ReportGroupsUnresolved(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf, false).Report(&internal.RunReport{
		Run: &models.Run{ID: "r1"},
		Unresolved: []models.UnresolvedLink{
			{Source: "a.md", Target: "X"},
			{Source: "a.md", Target: "Y"},
			{Source: "b.md", Target: "Z"},
		},
	})
	out := buf.String()
	if !strings.Contains(out, "a.md → X, Y") || !strings.Contains(out, "b.md → Z") {
		t.Errorf("report:\n%s", out)
	}
	if !strings.Contains(out, "run did not finish") {
		t.Errorf("unfinished run not flagged:\n%s", out)
	}
}

func TestProgressBar_Render(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(&buf)
	bar.Start(2)
	bar.Advance("a.md")
	bar.Advance("b.md")
	bar.Advance("extra.md")
	bar.Finish()
	out := buf.String()
	if !strings.Contains(out, "2/2 extra.md") || !strings.Contains(out, "100%") {
		t.Errorf("progress output = %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish should end the line")
	}
}
