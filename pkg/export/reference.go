package export

import (
	"strings"
	"unicode"
)

// Reference is a parsed wikilink target: [[File#Section|Label]].
type Reference struct {
	File    string
	Section string
	Label   string
}

// ParseReference splits a raw wikilink target. An escaped pipe (as written
// inside tables) separates the label like a plain one.
func ParseReference(target string) Reference {
	target = strings.ReplaceAll(target, `\|`, "|")
	body, label, _ := strings.Cut(target, "|")
	file, section, _ := strings.Cut(body, "#")
	return Reference{
		File:    strings.TrimSpace(file),
		Section: strings.TrimSpace(section),
		Label:   strings.TrimSpace(label),
	}
}

// Display returns the text shown for the reference.
func (r Reference) Display() string {
	switch {
	case r.Label != "":
		return r.Label
	case r.File == "":
		return r.Section
	case r.Section == "":
		return r.File
	}
	return r.File + " > " + r.Section
}

// BlockRef reports whether the section points at a block id (#^id).
func (r Reference) BlockRef() bool {
	return strings.HasPrefix(r.Section, "^")
}

// Slug converts heading text into a URL fragment: lowercase, spaces become
// dashes, everything but letters, digits, dashes and underscores is dropped.
func Slug(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('-')
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
