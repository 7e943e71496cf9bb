package export

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LinkFormat selects how resolved links are written.
type LinkFormat int

const (
	// LinkFormatDefault writes percent-encoded paths relative to the note
	// being exported.
	LinkFormatDefault LinkFormat = iota
	// LinkFormatZola writes Zola internal links (@/path/to/note.md).
	LinkFormatZola
)

func (f LinkFormat) String() string {
	if f == LinkFormatZola {
		return "zola"
	}
	return "default"
}

// ParseLinkFormat parses "default" (or empty) and "zola".
func ParseLinkFormat(s string) (LinkFormat, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return LinkFormatDefault, nil
	case "zola":
		return LinkFormatZola, nil
	}
	return LinkFormatDefault, fmt.Errorf("unknown link format %q", s)
}

// Resolve finds the file a reference points at, as seen from the note at
// referencing (vault-relative). When several files share the name, the one
// sharing the longest directory prefix with referencing wins, then the one
// with fewer path components, then the lexicographically smaller path. The
// referencing note itself is not a candidate in that case.
func (idx *Index) Resolve(ref Reference, referencing string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(ref.File, `\`, "/")), "/")
	if ref.File == "" || name == "" {
		return "", false
	}
	cands := idx.Candidates(Key(name))
	if strings.Contains(name, "/") {
		var filtered []string
		for _, c := range cands {
			if matchesFragment(c, name) {
				filtered = append(filtered, c)
			}
		}
		cands = filtered
	}
	switch len(cands) {
	case 0:
		return "", false
	case 1:
		return cands[0], true
	}
	return closest(withoutPath(cands, referencing), referencing), true
}

// withoutPath drops self from a candidate set of two or more, so a note
// sharing its name with others never links to itself.
func withoutPath(cands []string, self string) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		if c != self {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return cands
	}
	return out
}

func matchesFragment(cand, name string) bool {
	c := fold(trimNoteExt(cand))
	n := fold(trimNoteExt(name))
	return c == n || strings.HasSuffix(c, "/"+n)
}

func fold(s string) string {
	return norm.NFC.String(strings.ToLower(s))
}

func trimNoteExt(p string) string {
	if IsNote(p) {
		return p[:len(p)-len(path.Ext(p))]
	}
	return p
}

func closest(cands []string, referencing string) string {
	from := dirParts(referencing)
	best, bestShared, bestDepth := "", -1, 0
	for _, c := range cands {
		parts := dirParts(c)
		shared := commonPrefix(parts, from)
		if shared > bestShared || shared == bestShared && len(parts) < bestDepth {
			best, bestShared, bestDepth = c, shared, len(parts)
		}
	}
	return best
}

func dirParts(rel string) []string {
	dir := path.Dir(rel)
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(dir, "/")
}

func commonPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// FormatLink builds the link destination for target as written from the note
// at from. A non-empty section is appended as a slug fragment.
func FormatLink(format LinkFormat, from, target, section string) string {
	var dest string
	switch format {
	case LinkFormatZola:
		dest = "@/" + escapePath(target)
	default:
		dest = escapePath(relativePath(from, target))
	}
	if section != "" {
		dest += "#" + Slug(section)
	}
	return dest
}

// relativePath returns to relative to the directory of from. Both are
// vault-relative, slash separated.
func relativePath(from, to string) string {
	fromDir := dirParts(from)
	toParts := strings.Split(to, "/")
	n := commonPrefix(fromDir, toParts[:len(toParts)-1])
	parts := make([]string, 0, len(fromDir)-n+len(toParts)-n)
	for i := n; i < len(fromDir); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[n:]...)
	return strings.Join(parts, "/")
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
