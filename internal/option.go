package internal

import (
	"log/slog"

	"github.com/starford/kenaz-export/pkg/export"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	logger   *slog.Logger
	observer export.Observer
	plan     func(notes int)
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON stdout logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithProgress registers callbacks for the planned note count and for each
// file result of an export.
func WithProgress(plan func(notes int), observer export.Observer) Option {
	return func(a *application) {
		a.plan = plan
		a.observer = observer
	}
}
