package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/kenaz-export/pkg/export"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app" toml:"app"`
	Export   ExportConfig      `yaml:"export" toml:"export"`
	Ignore   IgnoreConfig      `yaml:"ignore" toml:"ignore"`
	Manifest ManifestConfig    `yaml:"manifest" toml:"manifest"`
	Auth     AuthConfig        `yaml:"auth" toml:"auth"`
	Watch    WatchConfig       `yaml:"watch" toml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// PostprocessorConfig names a registered postprocessor and its options.
type PostprocessorConfig struct {
	Name    string         `yaml:"name" toml:"name"`
	Options map[string]any `yaml:"options" toml:"options"`
}

// Validate validates the postprocessor entry.
func (c PostprocessorConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
	)
}

// ExportConfig holds the exporter settings.
type ExportConfig struct {
	Source              string                `yaml:"source" toml:"source"`
	Destination         string                `yaml:"destination" toml:"destination"`
	StartAt             string                `yaml:"start_at" toml:"start_at"`
	Frontmatter         string                `yaml:"frontmatter" toml:"frontmatter"`
	LinkFormat          string                `yaml:"link_format" toml:"link_format"`
	RecursiveEmbeds     bool                  `yaml:"recursive_embeds" toml:"recursive_embeds"`
	PreserveMtime       bool                  `yaml:"preserve_mtime" toml:"preserve_mtime"`
	MaxDepth            int                   `yaml:"max_depth" toml:"max_depth"`
	Workers             int                   `yaml:"workers" toml:"workers"`
	FailFast            bool                  `yaml:"fail_fast" toml:"fail_fast"`
	Postprocessors      []PostprocessorConfig `yaml:"postprocessors" toml:"postprocessors"`
	EmbedPostprocessors []PostprocessorConfig `yaml:"embed_postprocessors" toml:"embed_postprocessors"`
}

// Validate validates the export configuration. The destination is checked
// by the commands that write.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.Frontmatter, validation.In("auto", "always", "never")),
		validation.Field(&c.LinkFormat, validation.In("default", "zola")),
		validation.Field(&c.MaxDepth, validation.Min(1)),
		validation.Field(&c.Workers, validation.Min(1)),
		validation.Field(&c.Postprocessors),
		validation.Field(&c.EmbedPostprocessors),
	)
}

// IgnoreConfig controls which vault files are indexed.
type IgnoreConfig struct {
	IncludeHidden    bool     `yaml:"include_hidden" toml:"include_hidden"`
	RespectGitignore bool     `yaml:"respect_gitignore" toml:"respect_gitignore"`
	Patterns         []string `yaml:"patterns" toml:"patterns"`
}

// Rules converts the section into exporter ignore rules.
func (c IgnoreConfig) Rules() export.IgnoreRules {
	return export.IgnoreRules{
		IncludeHidden:    c.IncludeHidden,
		RespectGitignore: c.RespectGitignore,
		Patterns:         c.Patterns,
	}
}

// ManifestConfig holds the run manifest database location. An empty path
// disables the manifest.
type ManifestConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Enabled reports whether runs are recorded.
func (c *ManifestConfig) Enabled() bool {
	return c.Path != ""
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce string `yaml:"debounce" toml:"debounce"`
}

// Interval returns the parsed debounce interval.
func (c *WatchConfig) Interval() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.By(func(value any) error {
			s, _ := value.(string)
			if s == "" {
				return nil
			}
			if _, err := time.ParseDuration(s); err != nil {
				return errors.New("must be a duration such as 500ms")
			}
			return nil
		})),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Export: ExportConfig{
			Source:          "./vault",
			Frontmatter:     "auto",
			LinkFormat:      "default",
			RecursiveEmbeds: true,
			MaxDepth:        export.DefaultMaxDepth,
			Workers:         1,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// ExportOptions translates the configuration into exporter options, building
// the postprocessor chains from reg.
func (c *Config) ExportOptions(reg *export.Registry, logger *slog.Logger) ([]export.Option, error) {
	strategy, err := export.ParseFrontmatterStrategy(c.Export.Frontmatter)
	if err != nil {
		return nil, err
	}
	format, err := export.ParseLinkFormat(c.Export.LinkFormat)
	if err != nil {
		return nil, err
	}
	root, err := buildChain(reg, c.Export.Postprocessors)
	if err != nil {
		return nil, err
	}
	embed, err := buildChain(reg, c.Export.EmbedPostprocessors)
	if err != nil {
		return nil, err
	}

	opts := []export.Option{
		export.WithFrontmatterStrategy(strategy),
		export.WithLinkFormat(format),
		export.WithRecursiveEmbeds(c.Export.RecursiveEmbeds),
		export.WithPreserveMtime(c.Export.PreserveMtime),
		export.WithIgnoreRules(c.Ignore.Rules()),
		export.WithMaxDepth(c.Export.MaxDepth),
		export.WithWorkers(c.Export.Workers),
		export.WithFailFast(c.Export.FailFast),
		export.WithPostprocessors(root...),
		export.WithEmbedPostprocessors(embed...),
	}
	if c.Export.StartAt != "" {
		opts = append(opts, export.WithStartAt(c.Export.StartAt))
	}
	if logger != nil {
		opts = append(opts, export.WithLogger(logger))
	}
	return opts, nil
}

func buildChain(reg *export.Registry, entries []PostprocessorConfig) ([]export.Postprocessor, error) {
	out := make([]export.Postprocessor, 0, len(entries))
	for _, entry := range entries {
		p, err := reg.Build(entry.Name, entry.Options)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
