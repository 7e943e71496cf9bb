package export

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/starford/kenaz-export/pkg/markdown"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".svg": true, ".webp": true, ".avif": true,
}

func isImage(p string) bool {
	return imageExts[strings.ToLower(path.Ext(p))]
}

// resolve rewrites the wikilinks and embeds of a note. Embedded notes are
// expanded in place through the embed chain. Assets behind regular links and
// images are scheduled for copying too.
func (e *Exporter) resolve(idx *Index, c *Context, events markdown.Events, st *RecursionStack) (markdown.Events, error) {
	out := make(markdown.Events, 0, len(events))
	for _, ev := range events {
		if ev.Kind == markdown.Link || ev.Kind == markdown.Image {
			out = append(out, e.plainLink(idx, c, ev))
			continue
		}
		if ev.Kind != markdown.WikiLink {
			out = append(out, ev)
			continue
		}
		ref := ParseReference(ev.Target)
		if !ev.Embed {
			out = append(out, e.link(idx, c, ref))
			continue
		}
		expanded, err := e.embed(idx, c, ref, st)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// plainLink schedules the vault asset a regular markdown link or image
// points at. Inside an embed from another directory the destination is
// rewritten relative to the root note.
func (e *Exporter) plainLink(idx *Index, c *Context, ev markdown.Event) markdown.Event {
	target, ok := localTarget(idx, c.current, ev.Dest)
	if !ok || IsNote(target) {
		return ev
	}
	c.schedule(target)
	if path.Dir(c.current) != path.Dir(c.root) {
		ev.Dest = FormatLink(e.linkFormat, c.root, target, "")
	}
	return ev
}

// localTarget returns the indexed file a link destination refers to,
// resolved against the directory of the note at current. URLs, absolute
// paths and destinations leaving the vault yield false.
func localTarget(idx *Index, current, dest string) (string, bool) {
	d := strings.TrimSpace(dest)
	if strings.HasPrefix(d, "<") {
		end := strings.IndexByte(d, '>')
		if end < 0 {
			return "", false
		}
		d = d[1:end]
	} else if i := strings.IndexAny(d, " \t"); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexAny(d, "#?"); i >= 0 {
		d = d[:i]
	}
	if d == "" || strings.HasPrefix(d, "/") || strings.Contains(d, ":") {
		return "", false
	}
	if unescaped, err := url.PathUnescape(d); err == nil {
		d = unescaped
	}
	rel := path.Join(path.Dir(current), d)
	if rel == ".." || strings.HasPrefix(rel, "../") || !idx.Contains(rel) {
		return "", false
	}
	return rel, true
}

func (e *Exporter) link(idx *Index, c *Context, ref Reference) markdown.Event {
	if ref.File == "" {
		if ref.Section == "" {
			return e.unresolved(c, ref)
		}
		return markdown.Event{Kind: markdown.Link, Text: ref.Display(), Dest: "#" + Slug(ref.Section)}
	}
	target, ok := idx.Resolve(ref, c.current)
	if !ok {
		return e.unresolved(c, ref)
	}
	if !IsNote(target) {
		c.schedule(target)
	}
	return markdown.Event{
		Kind: markdown.Link,
		Text: ref.Display(),
		Dest: FormatLink(e.linkFormat, c.root, target, ref.Section),
	}
}

// unresolved renders a reference that matches nothing as emphasized text.
func (e *Exporter) unresolved(c *Context, ref Reference) markdown.Event {
	c.unresolved = append(c.unresolved, ref.File)
	e.logger.Debug("unresolved link",
		slog.String("path", c.current),
		slog.String("target", ref.File))
	return markdown.Event{Kind: markdown.Emphasis, Text: ref.Display()}
}

func (e *Exporter) embed(idx *Index, c *Context, ref Reference, st *RecursionStack) (markdown.Events, error) {
	if ref.File == "" {
		return markdown.Events{e.link(idx, c, ref)}, nil
	}
	target, ok := idx.Resolve(ref, c.current)
	if !ok {
		return markdown.Events{e.unresolved(c, ref)}, nil
	}
	if !IsNote(target) {
		c.schedule(target)
		kind := markdown.Link
		if isImage(target) {
			kind = markdown.Image
		}
		return markdown.Events{{
			Kind: kind,
			Text: ref.Display(),
			Dest: FormatLink(e.linkFormat, c.root, target, ""),
		}}, nil
	}
	if c.embedded && !e.recursive {
		return markdown.Events{e.link(idx, c, ref)}, nil
	}

	if err := st.Push(target); err != nil {
		return nil, err
	}
	defer st.Pop()

	n, err := readNote(idx, target)
	if err != nil {
		return nil, err
	}
	child := newContext(target, c.root, c.vault, n.fm, n.hadBlock, c.strategy)
	child.Destination = c.Destination
	child.stack = st.Snapshot()

	events := n.events
	if ref.Section != "" && !ref.BlockRef() {
		events = section(events, ref.Section)
	}
	events, err = e.resolve(idx, child, events, st)
	if err != nil {
		return nil, err
	}
	if e.embedChain.Run(child, &events) == StopAndSkipNote {
		return nil, nil
	}
	c.adopt(child)
	return events.TrimTrailingBreaks(), nil
}

// section returns the events from the heading matching name up to the next
// heading of the same or a higher level. A missing heading yields the whole
// note.
func section(events markdown.Events, name string) markdown.Events {
	want := Slug(name)
	for i, ev := range events {
		if ev.Kind != markdown.Heading || Slug(events.HeadingText(i)) != want {
			continue
		}
		end := len(events)
		for j := i + 1; j < len(events); j++ {
			if events[j].Kind == markdown.Heading && events[j].Level <= ev.Level {
				end = j
				break
			}
		}
		return events[i:end]
	}
	return events
}
