// Package markdown turns note bodies into a flat stream of structural events
// and renders such a stream back to text.
//
// The tokenizer is lossless: Render(Tokenize(s)) == s for any input. Only the
// constructs the exporter needs to rewrite are recognised (headings, fenced
// code, inline code, line breaks, links, images, wikilinks, embeds and %%
// comments); everything else travels through as Text.
package markdown

import "strings"

// Kind identifies the type of an Event.
type Kind int

const (
	// Text is a run of literal markdown.
	Text Kind = iota
	// SoftBreak is a newline between two lines of the same paragraph.
	SoftBreak
	// HardBreak is a forced line break inside a paragraph.
	HardBreak
	// LineEnd terminates a block-level line (heading, blank line, last
	// line of a paragraph, list item).
	LineEnd
	// Heading opens an ATX heading; the heading text follows as inline events.
	Heading
	// CodeBlock is a fenced code block including its fences.
	CodeBlock
	// Code is an inline code span including its backticks.
	Code
	// Link is an inline markdown link [Text](Dest).
	Link
	// Image is an inline markdown image ![Text](Dest).
	Image
	// WikiLink is a [[Target]] reference, or ![[Target]] when Embed is set.
	WikiLink
	// Emphasis is *Text*.
	Emphasis
	// Comment is a %%...%% comment, possibly spanning lines.
	Comment
)

var kindNames = [...]string{
	Text:      "Text",
	SoftBreak: "SoftBreak",
	HardBreak: "HardBreak",
	LineEnd:   "LineEnd",
	Heading:   "Heading",
	CodeBlock: "CodeBlock",
	Code:      "Code",
	Link:      "Link",
	Image:     "Image",
	WikiLink:  "WikiLink",
	Emphasis:  "Emphasis",
	Comment:   "Comment",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Event is one structural token.
//
// Text holds the raw source for verbatim kinds, the label for Link, Image and
// Emphasis, and the marker ("## ") for Heading. Break events keep their raw
// newline sequence in Text so CRLF input round-trips; an empty Text renders the
// canonical form.
type Event struct {
	Kind   Kind
	Text   string
	Dest   string
	Target string
	Level  int
	Embed  bool
}

// Events is an ordered event stream.
type Events []Event

// TrimTrailingBreaks drops trailing line endings and breaks.
func (e Events) TrimTrailingBreaks() Events {
	end := len(e)
	for end > 0 {
		switch e[end-1].Kind {
		case LineEnd, SoftBreak, HardBreak:
			end--
			continue
		}
		break
	}
	return e[:end]
}

// HeadingText returns the plain text of the heading starting at index i.
func (e Events) HeadingText(i int) string {
	var b strings.Builder
	for j := i + 1; j < len(e); j++ {
		if e[j].Kind == LineEnd || e[j].Kind == SoftBreak || e[j].Kind == HardBreak {
			break
		}
		b.WriteString(e[j].plain())
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(b.String()), "#"))
}

func (ev Event) plain() string {
	switch ev.Kind {
	case Text, Emphasis, Link, Image:
		return ev.Text
	case Code:
		return strings.Trim(ev.Text, "`")
	case WikiLink:
		return ev.Target
	}
	return ""
}

// Render serializes events back to markdown.
func Render(events Events) string {
	var b strings.Builder
	for _, ev := range events {
		writeEvent(&b, ev)
	}
	return b.String()
}

func writeEvent(b *strings.Builder, ev Event) {
	switch ev.Kind {
	case Text, Code, CodeBlock, Comment:
		b.WriteString(ev.Text)
	case SoftBreak, LineEnd:
		if ev.Text == "" {
			b.WriteByte('\n')
			return
		}
		b.WriteString(ev.Text)
	case HardBreak:
		if ev.Text == "" {
			b.WriteString("  \n")
			return
		}
		b.WriteString(ev.Text)
	case Heading:
		if ev.Text == "" {
			b.WriteString(strings.Repeat("#", ev.Level))
			b.WriteByte(' ')
			return
		}
		b.WriteString(ev.Text)
	case Link:
		b.WriteByte('[')
		b.WriteString(ev.Text)
		b.WriteString("](")
		b.WriteString(ev.Dest)
		b.WriteByte(')')
	case Image:
		b.WriteString("![")
		b.WriteString(ev.Text)
		b.WriteString("](")
		b.WriteString(ev.Dest)
		b.WriteByte(')')
	case WikiLink:
		if ev.Embed {
			b.WriteByte('!')
		}
		b.WriteString("[[")
		b.WriteString(ev.Target)
		b.WriteString("]]")
	case Emphasis:
		b.WriteByte('*')
		b.WriteString(ev.Text)
		b.WriteByte('*')
	}
}
