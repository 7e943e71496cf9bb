package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/kenaz-export/internal"
	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/internal/models"
)

// printer writes human-readable summaries, colored on a terminal.
type printer struct {
	w       io.Writer
	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	key     lipgloss.Style
}

func newPrinter(w io.Writer, tty bool) *printer {
	p := &printer{
		w:       w,
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   lipgloss.NewStyle().Faint(true),
		key:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
	if !tty {
		plain := lipgloss.NewStyle()
		p.title, p.success, p.warning, p.failure, p.muted, p.key = plain, plain, plain, plain, plain, plain
	}
	return p
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) counts(run *models.Run) {
	p.line("%s %s  %s %s  %s %s  %s %s",
		p.key.Render("exported"), p.success.Render(fmt.Sprint(run.Exported)),
		p.key.Render("skipped"), p.warning.Render(fmt.Sprint(run.Skipped)),
		p.key.Render("failed"), p.failure.Render(fmt.Sprint(run.Failed)),
		p.key.Render("assets"), fmt.Sprint(run.Assets))
}

func (p *printer) failures(files []models.FileRecord) {
	for _, f := range files {
		if f.Status != "failed" {
			continue
		}
		p.line("  %s %s", p.failure.Render("✗"), f.Path)
		if f.Error != "" {
			p.line("    %s", p.muted.Render(f.Error))
		}
	}
}

// Summary prints the outcome of an export.
func (p *printer) Summary(s *exportservice.RunSummary) {
	p.line("%s", p.title.Render("Export finished"))
	p.counts(s.Run)
	p.failures(s.Files)
	if s.Unresolved > 0 {
		p.line("%s", p.warning.Render(fmt.Sprintf("%d unresolved links", s.Unresolved)))
	}
}

// Report prints the last recorded run.
func (p *printer) Report(r *internal.RunReport) {
	p.line("%s %s", p.title.Render("Run"), r.Run.ID)
	p.line("%s %s", p.key.Render("started"), r.Run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if r.Run.FinishedAt == nil {
		p.line("%s", p.warning.Render("run did not finish"))
	}
	if r.Run.Error != "" {
		p.line("%s %s", p.failure.Render("error"), r.Run.Error)
	}
	p.counts(r.Run)
	p.failures(r.Failed)
	if len(r.Unresolved) == 0 {
		return
	}
	p.line("%s", p.title.Render("Unresolved links"))
	bySource := make(map[string][]string)
	var order []string
	for _, l := range r.Unresolved {
		if _, ok := bySource[l.Source]; !ok {
			order = append(order, l.Source)
		}
		bySource[l.Source] = append(bySource[l.Source], l.Target)
	}
	for _, src := range order {
		p.line("  %s %s", src, p.muted.Render("→ "+strings.Join(bySource[src], ", ")))
	}
}
