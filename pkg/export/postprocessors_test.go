package export

import (
	"testing"

	"github.com/starford/kenaz-export/pkg/frontmatter"
	"github.com/starford/kenaz-export/pkg/markdown"
)

func contextWith(t *testing.T, raw string) *Context {
	t.Helper()
	fm, _, err := frontmatter.Split([]byte(raw))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	return newContext("Note.md", "Note.md", "/vault", fm, fm != nil, FrontmatterAuto)
}

func TestFilterByTags(t *testing.T) {
	filter := FilterByTags([]string{"private"}, []string{"public"})
	cases := []struct {
		name string
		raw  string
		want PostprocessorResult
	}{
		{"exclusion wins", "---\ntags: [public, private]\n---\n", StopAndSkipNote},
		{"included", "---\ntags: [public]\n---\n", Continue},
		{"no tags with only list", "body", StopAndSkipNote},
		{"other tags", "---\ntags: [misc]\n---\n", StopAndSkipNote},
		{"non-list tags pass", "---\ntags: private\n---\n", Continue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := markdown.Events{}
			if got := filter(contextWith(t, tc.raw), &events); got != tc.want {
				t.Errorf("result = %s, want %s", got, tc.want)
			}
		})
	}

	skipOnly := FilterByTags([]string{"draft"}, nil)
	events := markdown.Events{}
	if got := skipOnly(contextWith(t, "no frontmatter"), &events); got != Continue {
		t.Errorf("untagged note with empty include list = %s, want continue", got)
	}
}

func TestOnlyPublished(t *testing.T) {
	cases := map[string]PostprocessorResult{
		"---\npublish: true\n---\n":   Continue,
		"---\npublish: false\n---\n":  StopAndSkipNote,
		"---\npublish: \"yes\"\n---\n": StopAndSkipNote,
		"no frontmatter":              StopAndSkipNote,
	}
	for raw, want := range cases {
		events := markdown.Events{}
		if got := OnlyPublished(contextWith(t, raw), &events); got != want {
			t.Errorf("%q: result = %s, want %s", raw, got, want)
		}
	}
}

func TestSoftbreaksToHardbreaks(t *testing.T) {
	events := markdown.Tokenize("one\ntwo\r\nthree\n\nfour\n")
	SoftbreaksToHardbreaks(nil, &events)
	if got := markdown.Render(events); got != "one  \ntwo  \r\nthree\n\nfour\n" {
		t.Errorf("render = %q", got)
	}

	quotes := map[string]string{
		"> a\n> b\n":                "> a  \n> b\n",
		"> [!note] Title\n> body\n": "> [!note] Title  \n> body\n",
		"> a\n>\n> b\n":             "> a\n>\n> b\n",
		"> a\n> - item\n":           "> a\n> - item\n",
		"text\n> quote\n":           "text\n> quote\n",
	}
	for src, want := range quotes {
		events := markdown.Tokenize(src)
		SoftbreaksToHardbreaks(nil, &events)
		if got := markdown.Render(events); got != want {
			t.Errorf("%q: render = %q, want %q", src, got, want)
		}
	}
}

func TestRemoveComments(t *testing.T) {
	events := markdown.Tokenize("keep %%drop\nme%% this\n")
	RemoveComments(nil, &events)
	if got := markdown.Render(events); got != "keep  this\n" {
		t.Errorf("render = %q", got)
	}

	withCode := "100%% sure\n```\na %% b\n```\n"
	events = markdown.Tokenize(withCode)
	RemoveComments(nil, &events)
	if got := markdown.Render(events); got != withCode {
		t.Errorf("code after a stray marker was removed: %q", got)
	}
}

func TestChain_StopsAtFirstNonContinue(t *testing.T) {
	var calls []string
	record := func(name string, res PostprocessorResult) Postprocessor {
		return func(*Context, *markdown.Events) PostprocessorResult {
			calls = append(calls, name)
			return res
		}
	}
	c := NewChain(record("a", Continue), record("b", StopHere))
	c.Add(record("c", Continue))
	if c.Len() != 3 {
		t.Fatalf("len = %d", c.Len())
	}
	events := markdown.Events{}
	if got := c.Run(nil, &events); got != StopHere {
		t.Errorf("result = %s", got)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("calls = %v", calls)
	}

	var empty *Chain
	if empty.Run(nil, &events) != Continue || empty.Len() != 0 {
		t.Error("nil chain should be a no-op")
	}
}

func TestRegistry_Build(t *testing.T) {
	r := DefaultRegistry()
	want := []string{"filter_by_tags", "only_published", "remove_comments", "softbreaks_to_hardbreaks"}
	if got := r.Names(); len(got) != len(want) {
		t.Fatalf("names = %v", got)
	}
	p, err := r.Build("filter_by_tags", map[string]any{"skip": []any{"private"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	events := markdown.Events{}
	if got := p(contextWith(t, "---\ntags: [private]\n---\n"), &events); got != StopAndSkipNote {
		t.Errorf("built filter result = %s", got)
	}
	if _, err := r.Build("filter_by_tags", map[string]any{"skip": []any{1}}); err == nil {
		t.Error("expected error for non-string tag")
	}
	if _, err := r.Build("nope", nil); err == nil {
		t.Error("expected error for unknown postprocessor")
	}
	if !r.Has("only_published") || r.Has("nope") {
		t.Error("Has mismatch")
	}
}
