package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/kenaz-export/pkg/config"
	"github.com/starford/kenaz-export/pkg/export"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Watch.Interval().String() != "500ms" {
		t.Errorf("interval = %s", cfg.Watch.Interval())
	}
	if cfg.Manifest.Enabled() {
		t.Error("manifest should be disabled by default")
	}
}

func TestExportConfig_Validation(t *testing.T) {
	cases := map[string]func(*Config){
		"frontmatter":   func(c *Config) { c.Export.Frontmatter = "sometimes" },
		"link format":   func(c *Config) { c.Export.LinkFormat = "hugo" },
		"workers":       func(c *Config) { c.Export.Workers = -1 },
		"source":        func(c *Config) { c.Export.Source = "" },
		"postprocessor": func(c *Config) { c.Export.Postprocessors = []PostprocessorConfig{{}} },
		"debounce":      func(c *Config) { c.Watch.Debounce = "soon" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestExportOptions_BuildsChains(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Export.Postprocessors = []PostprocessorConfig{
		{Name: "filter_by_tags", Options: map[string]any{"skip": []any{"private"}}},
	}
	opts, err := cfg.ExportOptions(export.DefaultRegistry(), nil)
	if err != nil {
		t.Fatalf("ExportOptions: %v", err)
	}
	if len(opts) == 0 {
		t.Fatal("expected options")
	}

	cfg.Export.EmbedPostprocessors = []PostprocessorConfig{{Name: "unknown"}}
	if _, err := cfg.ExportOptions(export.DefaultRegistry(), nil); err == nil {
		t.Error("unknown postprocessor should fail")
	}
}

func TestConfig_LoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `[app]
log_level = "debug"

[app.http]
port = 9090

[export]
source = "/vault"
destination = "/out"
link_format = "zola"

[[export.postprocessors]]
name = "only_published"

[watch]
debounce = "1s"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Export.LinkFormat != "zola" || cfg.Export.Destination != "/out" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Export.Postprocessors) != 1 || cfg.Export.Postprocessors[0].Name != "only_published" {
		t.Errorf("postprocessors = %+v", cfg.Export.Postprocessors)
	}
	if !cfg.Export.RecursiveEmbeds {
		t.Error("defaults should survive a partial file")
	}
	if cfg.Watch.Interval().String() != "1s" {
		t.Errorf("interval = %s", cfg.Watch.Interval())
	}
}
