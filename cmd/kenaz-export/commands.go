package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/kenaz-export/internal"
	"github.com/starford/kenaz-export/pkg/export"
	"github.com/starford/kenaz-export/pkg/frontmatter"
	"github.com/starford/kenaz-export/pkg/markdown"
)

func isTTY(f *os.File) bool {
	return os.Getenv("TERM") != "dumb" && term.IsTerminal(int(f.Fd()))
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if cfg.Export.Destination == "" {
		return errors.New("destination is required")
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogger(stderrLogger(cfg)),
	}
	var bar *progressBar
	if !cmd.Bool("no-progress") && isTTY(os.Stderr) {
		bar = newProgressBar(os.Stderr)
		opts = append(opts, internal.WithProgress(bar.Start, func(res export.FileResult) {
			bar.Advance(res.Path)
		}))
	}

	summary, err := internal.Export(ctx, opts...)
	if bar != nil {
		bar.Finish()
	}
	if summary == nil {
		return fmt.Errorf("export: %w", err)
	}

	p := newPrinter(os.Stdout, isTTY(os.Stdout))
	p.Summary(summary)
	if err != nil {
		return fmt.Errorf("export stopped: %w", err)
	}
	if summary.Run.Failed > 0 {
		return fmt.Errorf("%d notes failed to export", summary.Run.Failed)
	}
	return nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if cfg.Export.Destination == "" {
		return errors.New("destination is required")
	}
	return internal.Watch(ctx, internal.WithConfig(cfg), internal.WithLogger(stderrLogger(cfg)))
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogger(logger))
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	note := cmd.Args().First()
	if note == "" {
		return errors.New("usage: kenaz-export render NOTE")
	}
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	out, err := internal.Render(ctx, note, internal.WithConfig(cfg), internal.WithLogger(stderrLogger(cfg)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stdout, out)
	return err
}

// runEvents prints the frontmatter and token stream of a note as the
// postprocessors see it, before links and embeds are resolved.
func runEvents(_ context.Context, cmd *cli.Command) error {
	note := cmd.Args().First()
	if note == "" {
		return errors.New("usage: kenaz-export events NOTE")
	}
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	path := note
	if !filepath.IsAbs(path) {
		if _, statErr := os.Stat(path); statErr != nil {
			path = filepath.Join(cfg.Export.Source, filepath.FromSlash(note))
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fm, body, err := frontmatter.Split(raw)
	if err != nil {
		return err
	}

	dump := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	if fm != nil {
		var values map[string]any
		if err := fm.Decode(&values); err != nil {
			return err
		}
		dump.Fdump(os.Stdout, values)
	}
	dump.Fdump(os.Stdout, markdown.Tokenize(body))
	return nil
}

func runReport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	rep, err := internal.Report(ctx, internal.WithConfig(cfg), internal.WithLogger(stderrLogger(cfg)))
	if err != nil {
		return err
	}
	newPrinter(os.Stdout, isTTY(os.Stdout)).Report(rep)
	return nil
}
