package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/kenaz-export/internal"
	pkgconfig "github.com/starford/kenaz-export/pkg/config"
)

// loadConfig reads the optional config file and applies command-line
// overrides on top of it. With positional set, the arguments are taken as
// SOURCE and DESTINATION.
func loadConfig(cmd *cli.Command, positional bool) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if args := cmd.Args(); positional && args.Len() >= 1 {
		cfg.Export.Source = args.Get(0)
		if args.Len() >= 2 {
			cfg.Export.Destination = args.Get(1)
		}
	}
	if cmd.IsSet("source") {
		cfg.Export.Source = cmd.String("source")
	}
	if cmd.IsSet("destination") {
		cfg.Export.Destination = cmd.String("destination")
	}
	if cmd.IsSet("start-at") {
		cfg.Export.StartAt = cmd.String("start-at")
	}
	if cmd.IsSet("frontmatter") {
		cfg.Export.Frontmatter = cmd.String("frontmatter")
	}
	if cmd.IsSet("link-format") {
		cfg.Export.LinkFormat = cmd.String("link-format")
	}
	if cmd.IsSet("no-recursive-embeds") {
		cfg.Export.RecursiveEmbeds = !cmd.Bool("no-recursive-embeds")
	}
	if cmd.IsSet("preserve-mtime") {
		cfg.Export.PreserveMtime = cmd.Bool("preserve-mtime")
	}
	if cmd.IsSet("hidden") {
		cfg.Ignore.IncludeHidden = cmd.Bool("hidden")
	}
	if cmd.IsSet("gitignore") {
		cfg.Ignore.RespectGitignore = cmd.Bool("gitignore")
	}
	if cmd.IsSet("ignore") {
		cfg.Ignore.Patterns = append(cfg.Ignore.Patterns, cmd.StringSlice("ignore")...)
	}
	if cmd.IsSet("workers") {
		cfg.Export.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("max-depth") {
		cfg.Export.MaxDepth = int(cmd.Int("max-depth"))
	}
	if cmd.IsSet("fail-fast") {
		cfg.Export.FailFast = cmd.Bool("fail-fast")
	}
	if cmd.IsSet("manifest") {
		cfg.Manifest.Path = cmd.String("manifest")
	}
	for _, name := range cmd.StringSlice("postprocessor") {
		cfg.Export.Postprocessors = append(cfg.Export.Postprocessors, internal.PostprocessorConfig{Name: name})
	}
	if cmd.IsSet("skip-tags") || cmd.IsSet("only-tags") {
		cfg.Export.Postprocessors = append(cfg.Export.Postprocessors, internal.PostprocessorConfig{
			Name: "filter_by_tags",
			Options: map[string]any{
				"skip": toAny(cmd.StringSlice("skip-tags")),
				"only": toAny(cmd.StringSlice("only-tags")),
			},
		})
	}
	if cmd.Bool("verbose") {
		cfg.App.LogLevel = slog.LevelDebug
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

// stderrLogger is used by every command whose stdout carries output.
func stderrLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
}

func main() {
	cmd := &cli.Command{
		Name:      "kenaz-export",
		Usage:     "Export a Markdown vault with wikilinks and embeds to plain CommonMark",
		ArgsUsage: "[SOURCE [DESTINATION]]",
		Action:    runExport,
		Flags:     flags(),
		Commands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "Export the vault once (default)",
				ArgsUsage: "[SOURCE [DESTINATION]]",
				Action:    runExport,
			},
			{
				Name:      "watch",
				Usage:     "Export, then re-export whenever the vault changes",
				ArgsUsage: "[SOURCE [DESTINATION]]",
				Action:    runWatch,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live progress events and the vault watcher",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve export tools over MCP on stdio",
				Action: runMCP,
			},
			{
				Name:      "render",
				Usage:     "Print the exported text of one note",
				ArgsUsage: "NOTE",
				Action:    runRender,
			},
			{
				Name:      "events",
				Usage:     "Dump the event stream of one note, for debugging postprocessors",
				ArgsUsage: "NOTE",
				Action:    runEvents,
			},
			{
				Name:   "report",
				Usage:  "Show failures and unresolved links of the last recorded run",
				Action: runReport,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file (YAML, or TOML by extension)",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Vault directory or single note"},
		&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Usage: "Existing output directory (or file path for a single note)"},
		&cli.StringFlag{Name: "start-at", Usage: "Only export this file or directory inside the vault"},
		&cli.StringFlag{Name: "frontmatter", Usage: "When to write frontmatter: auto, always or never"},
		&cli.StringFlag{Name: "link-format", Usage: "Link style: default or zola"},
		&cli.BoolFlag{Name: "no-recursive-embeds", Usage: "Write embeds inside embedded notes as links"},
		&cli.BoolFlag{Name: "preserve-mtime", Usage: "Copy source modification times onto written files"},
		&cli.BoolFlag{Name: "hidden", Usage: "Include hidden files and directories"},
		&cli.BoolFlag{Name: "gitignore", Usage: "Also honor .gitignore files"},
		&cli.StringSliceFlag{Name: "ignore", Usage: "Additional gitignore-style pattern (repeatable)"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "Notes exported concurrently"},
		&cli.IntFlag{Name: "max-depth", Usage: "Embed depth limit"},
		&cli.BoolFlag{Name: "fail-fast", Usage: "Stop at the first note that fails"},
		&cli.StringSliceFlag{Name: "postprocessor", Aliases: []string{"p"}, Usage: "Postprocessor to run on every note (repeatable)"},
		&cli.StringSliceFlag{Name: "skip-tags", Usage: "Skip notes carrying any of these tags"},
		&cli.StringSliceFlag{Name: "only-tags", Usage: "Export only notes carrying one of these tags"},
		&cli.StringFlag{Name: "manifest", Usage: "SQLite file recording runs", Sources: cli.EnvVars("KENAZ_EXPORT_MANIFEST")},
		&cli.BoolFlag{Name: "no-progress", Usage: "Disable the progress bar"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log at debug level"},
	}
}
