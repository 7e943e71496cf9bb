package export

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/kenaz-export/internal/testutil"
)

func TestBuildIndex_KeysAndCandidates(t *testing.T) {
	root := testutil.Vault(t, map[string]string{
		"Note.md":       "a",
		"sub/Note.md":   "b",
		"img/Photo.PNG": "c",
		"Other.MD":      "d",
	})
	idx, err := BuildIndex(root, IgnoreRules{})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("len = %d, want 4", idx.Len())
	}
	if got := idx.Candidates("note"); len(got) != 2 || got[0] != "Note.md" || got[1] != "sub/Note.md" {
		t.Errorf("candidates(note) = %v", got)
	}
	if got := idx.Candidates("photo.png"); len(got) != 1 {
		t.Errorf("assets keep their extension, candidates = %v", got)
	}
	if got := idx.Candidates("other"); len(got) != 1 {
		t.Errorf("note extension is case-insensitive, candidates = %v", got)
	}
	if got := idx.Notes(); len(got) != 3 {
		t.Errorf("notes = %v", got)
	}
}

func TestBuildIndex_MissingRoot(t *testing.T) {
	_, err := BuildIndex(filepath.Join(t.TempDir(), "nope"), IgnoreRules{})
	if !errors.Is(err, ErrPathDoesNotExist) {
		t.Fatalf("err = %v, want ErrPathDoesNotExist", err)
	}
}

func TestBuildIndex_SingleFile(t *testing.T) {
	root := testutil.Vault(t, map[string]string{"dir/One.md": "x", "dir/Two.md": "y"})
	idx, err := BuildIndex(filepath.Join(root, "dir", "One.md"), IgnoreRules{})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Root() != filepath.Join(root, "dir") {
		t.Errorf("root = %s", idx.Root())
	}
	if got := idx.Files(); len(got) != 1 || got[0] != "One.md" {
		t.Errorf("files = %v", got)
	}
}

func TestBuildIndex_IgnoreRules(t *testing.T) {
	root := testutil.Vault(t, map[string]string{
		".export-ignore":         "# comment\nprivate/\n*.tmp\n",
		"private/Secret.md":      "s",
		"Note.md":                "n",
		"scratch.tmp":            "t",
		".hidden/H.md":           "h",
		"nested/.export-ignore":  "/local.md\n",
		"nested/local.md":        "l",
		"nested/deeper/local.md": "kept",
		"extra/Drop.md":          "d",
	})
	idx, err := BuildIndex(root, IgnoreRules{Patterns: []string{"extra/*.md"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, gone := range []string{"private/Secret.md", "scratch.tmp", ".hidden/H.md", "nested/local.md", "extra/Drop.md", ".export-ignore"} {
		if idx.Contains(gone) {
			t.Errorf("%s should be ignored", gone)
		}
	}
	for _, kept := range []string{"Note.md", "nested/deeper/local.md"} {
		if !idx.Contains(kept) {
			t.Errorf("%s should be indexed", kept)
		}
	}
}

func TestBuildIndex_NegationAndHidden(t *testing.T) {
	root := testutil.Vault(t, map[string]string{
		".export-ignore": "*.md\n!Keep.md\n",
		"Keep.md":        "k",
		"Drop.md":        "d",
		".hidden/H.md":   "h",
		".config":        "c",
	})
	idx, err := BuildIndex(root, IgnoreRules{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	if !idx.Contains("Keep.md") || idx.Contains("Drop.md") {
		t.Errorf("files = %v", idx.Files())
	}
	if idx.Contains(".hidden/H.md") {
		t.Errorf("*.md pattern should also hide .hidden/H.md")
	}
	if !idx.Contains(".config") {
		t.Errorf("hidden files are indexed when IncludeHidden is set")
	}
}

func TestBuildIndex_Gitignore(t *testing.T) {
	root := testutil.Vault(t, map[string]string{
		".gitignore": "build/\n",
		"build/X.md": "x",
		"Y.md":       "y",
	})
	idx, err := BuildIndex(root, IgnoreRules{})
	if err != nil {
		t.Fatal(err)
	}
	if !idx.Contains("build/X.md") {
		t.Error(".gitignore must be ignored unless requested")
	}
	idx, err = BuildIndex(root, IgnoreRules{RespectGitignore: true})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Contains("build/X.md") {
		t.Error("build/X.md should be ignored")
	}
}

func TestKey_UnicodeNormalization(t *testing.T) {
	nfd, nfc := "Cafe\u0301.md", "Caf\u00e9"
	if Key(nfd) != Key(nfc) {
		t.Errorf("NFD and NFC names should share a key: %q vs %q", Key(nfd), Key(nfc))
	}
}

func TestResolve_ProximityDisambiguation(t *testing.T) {
	root := testutil.Vault(t, map[string]string{
		"A/Note.md":     "See [[Note]]",
		"A/Sub/Note.md": "x",
		"B/Note.md":     "y",
	})
	idx, err := BuildIndex(root, IgnoreRules{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := idx.Resolve(ParseReference("Note"), "A/Note.md")
	if !ok || got != "A/Sub/Note.md" {
		t.Errorf("resolve = %q (ok=%v), want A/Sub/Note.md", got, ok)
	}
	got, _ = idx.Resolve(ParseReference("Note"), "B/Other.md")
	if got != "B/Note.md" {
		t.Errorf("resolve from B = %q", got)
	}
}

func TestResolve_TieBreaks(t *testing.T) {
	root := testutil.Vault(t, map[string]string{
		"Deep/Er/Note.md": "x",
		"Top/Note.md":     "y",
		"X/Same.md":       "a",
		"Y/Same.md":       "b",
	})
	idx, err := BuildIndex(root, IgnoreRules{})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := idx.Resolve(ParseReference("Note"), "Ref.md"); got != "Top/Note.md" {
		t.Errorf("fewer components should win, got %q", got)
	}
	if got, _ := idx.Resolve(ParseReference("Same"), "Z/Ref.md"); got != "X/Same.md" {
		t.Errorf("lexicographic order should win, got %q", got)
	}
}

func TestResolve_PathFragmentAndMisses(t *testing.T) {
	root := testutil.Vault(t, map[string]string{
		"A/Note.md": "x",
		"B/Note.md": "y",
	})
	idx, err := BuildIndex(root, IgnoreRules{})
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := idx.Resolve(ParseReference("B/Note|alias"), "A/Ref.md"); !ok || got != "B/Note.md" {
		t.Errorf("fragment resolve = %q (ok=%v)", got, ok)
	}
	if _, ok := idx.Resolve(ParseReference("C/Note"), "A/Ref.md"); ok {
		t.Error("non-matching fragment should not resolve")
	}
	if _, ok := idx.Resolve(ParseReference("Missing"), "A/Ref.md"); ok {
		t.Error("missing note should not resolve")
	}
}

func TestParseReference(t *testing.T) {
	cases := []struct {
		in      string
		want    Reference
		display string
	}{
		{"Note", Reference{File: "Note"}, "Note"},
		{"Note#Heading", Reference{File: "Note", Section: "Heading"}, "Note > Heading"},
		{"Note#Heading|Alias", Reference{File: "Note", Section: "Heading", Label: "Alias"}, "Alias"},
		{`Note\|Alias`, Reference{File: "Note", Label: "Alias"}, "Alias"},
		{"#Local", Reference{Section: "Local"}, "Local"},
	}
	for _, tc := range cases {
		got := ParseReference(tc.in)
		if got != tc.want {
			t.Errorf("ParseReference(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
		if got.Display() != tc.display {
			t.Errorf("Display(%q) = %q, want %q", tc.in, got.Display(), tc.display)
		}
	}
}

func TestFormatLink(t *testing.T) {
	cases := []struct {
		format         LinkFormat
		from, to, sect string
		want           string
	}{
		{LinkFormatDefault, "Index.md", "Other Note.md", "", "Other%20Note.md"},
		{LinkFormatDefault, "a/b/Note.md", "a/c/Img (1).png", "", "../c/Img%20%281%29.png"},
		{LinkFormatDefault, "dir one/Start.md", "Über Note.md", "", "../%C3%9Cber%20Note.md"},
		{LinkFormatDefault, "x/Start.md", "x/y/Deep.md", "Some Heading!", "y/Deep.md#some-heading"},
		{LinkFormatZola, "Index.md", "sub/Deep Note.md", "Part 2", "@/sub/Deep%20Note.md#part-2"},
	}
	for _, tc := range cases {
		if got := FormatLink(tc.format, tc.from, tc.to, tc.sect); got != tc.want {
			t.Errorf("FormatLink(%s, %q, %q, %q) = %q, want %q", tc.format, tc.from, tc.to, tc.sect, got, tc.want)
		}
	}
}

func TestRecursionStack(t *testing.T) {
	s := NewRecursionStack(3)
	for _, p := range []string{"a", "b", "c"} {
		if err := s.Push(p); err != nil {
			t.Fatalf("push %s: %v", p, err)
		}
	}
	err := s.Push("d")
	var rerr *RecursionError
	if !errors.As(err, &rerr) || !errors.Is(err, ErrRecursionLimitExceeded) {
		t.Fatalf("err = %v, want RecursionError", err)
	}
	if len(rerr.Stack) != 4 || rerr.Stack[3] != "d" {
		t.Errorf("stack = %v", rerr.Stack)
	}
	s.Pop()
	if err := s.Push("a"); !errors.Is(err, ErrRecursionLimitExceeded) {
		t.Errorf("cycle should fail, err = %v", err)
	}
	if s.Depth() != 2 {
		t.Errorf("depth = %d, want 2", s.Depth())
	}
}
