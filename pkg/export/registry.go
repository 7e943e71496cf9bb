package export

import (
	"fmt"
	"sort"
)

// BuilderFunc creates a Postprocessor from generic config.
// Config is a map of postprocessor-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (Postprocessor, error)

// Registry maps postprocessor names to their builders so chains can be
// assembled from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// DefaultRegistry returns a registry holding the built-in postprocessors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("softbreaks_to_hardbreaks", func(map[string]any) (Postprocessor, error) {
		return SoftbreaksToHardbreaks, nil
	})
	r.Register("only_published", func(map[string]any) (Postprocessor, error) {
		return OnlyPublished, nil
	})
	r.Register("remove_comments", func(map[string]any) (Postprocessor, error) {
		return RemoveComments, nil
	})
	r.Register("filter_by_tags", func(cfg map[string]any) (Postprocessor, error) {
		skip, err := stringList(cfg, "skip")
		if err != nil {
			return nil, err
		}
		only, err := stringList(cfg, "only")
		if err != nil {
			return nil, err
		}
		return FilterByTags(skip, only), nil
	})
	return r
}

// Register adds a builder. A later registration replaces an earlier one.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a postprocessor by name with the given config.
func (r *Registry) Build(name string, cfg map[string]any) (Postprocessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown postprocessor: %s", name)
	}
	p, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("postprocessor %s: %w", name, err)
	}
	return p, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stringList(cfg map[string]any, key string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: expected a list of strings, got %T item", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{v}, nil
	}
	return nil, fmt.Errorf("%s: expected a list of strings, got %T", key, raw)
}
