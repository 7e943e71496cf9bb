package export

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFile is the per-directory file listing paths to leave out of an export.
const IgnoreFile = ".export-ignore"

// IgnoreRules controls which vault files are visible to the index.
type IgnoreRules struct {
	// IncludeHidden keeps files and directories whose name starts with a dot.
	IncludeHidden bool
	// RespectGitignore applies .gitignore files like .export-ignore files.
	RespectGitignore bool
	// Patterns are gitignore-style patterns relative to the vault root.
	Patterns []string
}

type ignorePattern struct {
	base     string // vault-relative directory the pattern was declared in
	glob     string
	negate   bool
	dirOnly  bool
	anchored bool
}

func (p ignorePattern) matches(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	if p.base != "" {
		if !strings.HasPrefix(rel, p.base+"/") {
			return false
		}
		rel = rel[len(p.base)+1:]
	}
	glob := p.glob
	if !p.anchored {
		glob = "**/" + glob
	}
	ok, err := doublestar.Match(glob, rel)
	return err == nil && ok
}

type ignoreMatcher struct {
	patterns []ignorePattern
}

func newIgnoreMatcher(rules IgnoreRules) *ignoreMatcher {
	m := &ignoreMatcher{}
	m.add("", rules.Patterns)
	return m
}

// add parses gitignore-style lines declared in the vault-relative dir base.
func (m *ignoreMatcher) add(base string, lines []string) {
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := ignorePattern{base: base}
		if strings.HasPrefix(line, "!") {
			p.negate = true
			line = line[1:]
		}
		line = strings.TrimPrefix(line, `\`)
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		if strings.Contains(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if line == "" {
			continue
		}
		p.glob = path.Clean(line)
		m.patterns = append(m.patterns, p)
	}
}

// load reads an ignore file in the vault-relative dir base, if present.
func (m *ignoreMatcher) load(file, base string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	m.add(base, lines)
	return sc.Err()
}

// ignored applies patterns in declaration order; the last match wins.
func (m *ignoreMatcher) ignored(rel string, isDir bool) bool {
	ignored := false
	for _, p := range m.patterns {
		if p.matches(rel, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}
