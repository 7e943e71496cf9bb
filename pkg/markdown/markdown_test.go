package markdown

import (
	"testing"
)

func kinds(events Events) []Kind {
	out := make([]Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func equalKinds(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRender_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"# Heading\n\nParagraph line one\nline two\n",
		"line with hard break  \nnext\n",
		"line with backslash\\\nnext\n",
		"- item one\n- item two\n\n1. first\n2. second\n",
		"```go\nfunc main() { [[not a link]] }\n```\n\nafter\n",
		"~~~\nunterminated fence\n",
		"| a | b |\n|---|---|\n| [[x]] | y |\n",
		"windows\r\nline endings\r\n\r\n## Title\r\n",
		"inline `code [[x]]` and [link](http://example.com/a_(b)) and ![img](a.png)\n",
		"escaped \\[\\[not a link\\]\\] and %% comment\nacross lines %% end\n",
		"unclosed [[link and ![[embed\n",
		"> quote\n> more\n",
		"trailing spaces at end   ",
		"---\n\n***\n",
		"#not-a-heading\n####### too deep\n",
	}
	for _, in := range inputs {
		if got := Render(Tokenize(in)); got != in {
			t.Errorf("round trip mismatch:\n in  %q\n out %q", in, got)
		}
	}
}

func TestTokenize_WikiLinksAndEmbeds(t *testing.T) {
	events := Tokenize("See [[Note A|alias]] and ![[Image.png]].")
	var links []Event
	for _, ev := range events {
		if ev.Kind == WikiLink {
			links = append(links, ev)
		}
	}
	if len(links) != 2 {
		t.Fatalf("wikilinks = %d, want 2 (%v)", len(links), events)
	}
	if links[0].Target != "Note A|alias" || links[0].Embed {
		t.Errorf("first link = %+v", links[0])
	}
	if links[1].Target != "Image.png" || !links[1].Embed {
		t.Errorf("second link = %+v", links[1])
	}
}

func TestTokenize_CodeIsVerbatim(t *testing.T) {
	events := Tokenize("```\n[[inside]]\n```\n`[[inline]]`\n")
	for _, ev := range events {
		if ev.Kind == WikiLink {
			t.Fatalf("wikilink parsed inside code: %+v", ev)
		}
	}
	if events[0].Kind != CodeBlock || events[0].Text != "```\n[[inside]]\n```\n" {
		t.Errorf("code block = %+v", events[0])
	}
}

func TestTokenize_Breaks(t *testing.T) {
	got := kinds(Tokenize("a\nb  \nc\\\nd\n\ne\n"))
	want := []Kind{Text, SoftBreak, Text, HardBreak, Text, HardBreak, Text, LineEnd, LineEnd, Text, LineEnd}
	if !equalKinds(got, want) {
		t.Errorf("kinds = %v, want %v", got, want)
	}
}

func TestTokenize_QuoteContinuation(t *testing.T) {
	got := kinds(Tokenize("> a\n> b\n>\n> c\n"))
	want := []Kind{Text, SoftBreak, Text, LineEnd, Text, LineEnd, Text, LineEnd}
	if !equalKinds(got, want) {
		t.Errorf("kinds = %v, want %v", got, want)
	}
}

func TestTokenize_ListItemsAreNotSoftBreaks(t *testing.T) {
	for _, ev := range Tokenize("- one\n- two\n* three\n1. four\n") {
		if ev.Kind == SoftBreak {
			t.Fatalf("unexpected soft break between list items")
		}
	}
}

func TestTokenize_HeadingLevelAndText(t *testing.T) {
	events := Tokenize("### Some *Title* ###\nbody\n")
	if events[0].Kind != Heading || events[0].Level != 3 {
		t.Fatalf("first event = %+v", events[0])
	}
	if got := events.HeadingText(0); got != "Some *Title*" {
		t.Errorf("heading text = %q", got)
	}
}

func TestTokenize_LinksAndImages(t *testing.T) {
	events := Tokenize("[a [nested] label](dest.md \"title\") ![alt](img.png)")
	var found []Event
	for _, ev := range events {
		if ev.Kind == Link || ev.Kind == Image {
			found = append(found, ev)
		}
	}
	if len(found) != 2 {
		t.Fatalf("found %d links, want 2", len(found))
	}
	if found[0].Text != "a [nested] label" || found[0].Dest != "dest.md \"title\"" {
		t.Errorf("link = %+v", found[0])
	}
	if found[1].Kind != Image || found[1].Text != "alt" || found[1].Dest != "img.png" {
		t.Errorf("image = %+v", found[1])
	}
}

func TestTokenize_StrayCommentMarkerStopsAtFence(t *testing.T) {
	src := "50%% off\n\n```\nx %% y\n```\n\nafter %%note%%\n"
	events := Tokenize(src)
	var comments []string
	for _, ev := range events {
		if ev.Kind == Comment {
			comments = append(comments, ev.Text)
		}
	}
	if len(comments) != 1 || comments[0] != "%%note%%" {
		t.Errorf("comments = %q", comments)
	}
	if got := Render(events); got != src {
		t.Errorf("render = %q", got)
	}
}

func TestTokenize_Comment(t *testing.T) {
	events := Tokenize("keep %%drop\nthis%% keep\n")
	var comments int
	for _, ev := range events {
		if ev.Kind == Comment {
			comments++
			if ev.Text != "%%drop\nthis%%" {
				t.Errorf("comment = %q", ev.Text)
			}
		}
	}
	if comments != 1 {
		t.Errorf("comments = %d, want 1", comments)
	}
}

func TestRender_CanonicalForms(t *testing.T) {
	events := Events{
		{Kind: Heading, Level: 2},
		{Kind: Text, Text: "T"},
		{Kind: LineEnd},
		{Kind: Text, Text: "a"},
		{Kind: HardBreak},
		{Kind: Emphasis, Text: "b"},
		{Kind: SoftBreak},
		{Kind: Link, Text: "c", Dest: "c.md"},
		{Kind: WikiLink, Target: "d", Embed: true},
	}
	want := "## T\na  \n*b*\n[c](c.md)![[d]]"
	if got := Render(events); got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestEvents_TrimTrailingBreaks(t *testing.T) {
	events := Tokenize("text\n\n\n")
	trimmed := events.TrimTrailingBreaks()
	if len(trimmed) != 1 || trimmed[0].Text != "text" {
		t.Errorf("trimmed = %+v", trimmed)
	}
}
