package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
)

// progressBar draws a single-line bar on a terminal as notes finish.
// Observer calls are serialized by the exporter, so no locking is needed.
type progressBar struct {
	w               io.Writer
	bar             progress.Model
	total           int
	current         int
	lastRenderWidth int
}

func newProgressBar(w io.Writer) *progressBar {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 36
	if cols, err := strconv.Atoi(strings.TrimSpace(os.Getenv("COLUMNS"))); err == nil && cols > 0 {
		bar.Width = min(max(cols-40, 16), 64)
	}
	return &progressBar{w: w, bar: bar, total: 1}
}

// Start sets the number of notes the run will export.
func (p *progressBar) Start(total int) {
	p.total = max(total, 1)
	p.current = 0
	p.render("")
}

// Advance marks one more note as done.
func (p *progressBar) Advance(label string) {
	p.current = min(p.current+1, p.total)
	p.render(label)
}

// Finish ends the progress line.
func (p *progressBar) Finish() {
	if p.lastRenderWidth > 0 {
		fmt.Fprint(p.w, "\n")
		p.lastRenderWidth = 0
	}
}

func (p *progressBar) render(label string) {
	percent := float64(p.current) / float64(p.total)
	line := fmt.Sprintf("%s %3.0f%% %d/%d %s", p.bar.ViewAs(percent), percent*100, p.current, p.total, strings.TrimSpace(label))
	pad := ""
	if p.lastRenderWidth > len(line) {
		pad = strings.Repeat(" ", p.lastRenderWidth-len(line))
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.lastRenderWidth = len(line)
}
