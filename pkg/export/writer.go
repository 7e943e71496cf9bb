package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/kenaz-export/pkg/markdown"
)

// emitFrontmatter reports whether the note is written with a frontmatter
// block.
func (c *Context) emitFrontmatter() bool {
	switch c.strategy {
	case FrontmatterAlways:
		return true
	case FrontmatterNever:
		return false
	}
	return c.hadBlock || c.Frontmatter.Len() > 0
}

// compose serializes a note as "---\n<yaml>---\n\n<body>", or just the body.
func compose(c *Context, events markdown.Events) ([]byte, error) {
	body := markdown.Render(events)
	if !c.emitFrontmatter() {
		return []byte(body), nil
	}
	yml, err := c.Frontmatter.Render()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(yml) + len(body) + 9)
	buf.WriteString("---\n")
	buf.Write(yml)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// commit writes the note to its destination and copies the assets it
// scheduled. A destination already holding the same bytes is left alone.
func (e *Exporter) commit(r *run, c *Context, events markdown.Events) error {
	content, err := compose(c, events)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if old, readErr := r.store.Read(c.Destination); readErr != nil || !bytes.Equal(old, content) {
		if err := r.store.Write(c.Destination, content); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	if e.preserveMtime {
		if err := e.preserve(r, c.current, c.Destination); err != nil {
			return err
		}
	}
	for _, asset := range c.assets {
		if err := e.copyAsset(r, asset); err != nil {
			return err
		}
	}
	return nil
}

// copyAsset copies a vault file to its mirrored destination, at most once per
// run. Assets outside the exported subtree are left behind.
func (e *Exporter) copyAsset(r *run, rel string) error {
	dest, ok := r.destination(rel)
	if !ok {
		e.logger.Warn("asset outside export root, not copied", slog.String("path", rel))
		return nil
	}

	r.mu.Lock()
	if _, done := r.copied[dest]; done {
		r.mu.Unlock()
		return nil
	}
	r.copied[dest] = struct{}{}
	r.mu.Unlock()

	src := r.index.Abs(rel)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRead, rel, err)
	}
	if err := r.store.Copy(src, dest); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, rel, err)
	}
	if e.preserveMtime {
		if err := e.preserve(r, rel, dest); err != nil {
			return err
		}
	}
	r.report.addAssets(1)
	return nil
}

func (e *Exporter) preserve(r *run, rel, dest string) error {
	info, err := os.Stat(r.index.Abs(rel))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRead, rel, err)
	}
	if err := r.store.SetModTime(dest, info.ModTime()); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
