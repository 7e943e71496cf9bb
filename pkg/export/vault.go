package export

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Index maps normalized file names to the vault files that carry them. It is
// built once per run and read-only afterwards, so it is safe for concurrent
// lookups.
type Index struct {
	root  string              // absolute vault root
	files []string            // vault-relative, slash separated, sorted
	keys  map[string][]string // lookup key -> candidates, sorted
	set   map[string]struct{}
}

// BuildIndex walks root once and indexes every file not excluded by rules.
// When root is a single file the index holds only that file and the vault
// root is its parent directory.
func BuildIndex(root string, rules IgnoreRules) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathDoesNotExist, root)
	}

	idx := &Index{
		root: abs,
		keys: make(map[string][]string),
		set:  make(map[string]struct{}),
	}
	if !info.IsDir() {
		idx.root = filepath.Dir(abs)
		idx.add(filepath.Base(abs))
		return idx, nil
	}

	m := newIgnoreMatcher(rules)
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return m.loadDir(p, "", rules)
		}
		hidden := strings.HasPrefix(d.Name(), ".")
		if (hidden && !rules.IncludeHidden) || m.ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return m.loadDir(p, rel, rules)
		}
		if d.Name() == IgnoreFile || !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		idx.add(rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", ErrRead, root, err)
	}
	sort.Strings(idx.files)
	for _, cands := range idx.keys {
		sort.Strings(cands)
	}
	return idx, nil
}

func (m *ignoreMatcher) loadDir(dir, rel string, rules IgnoreRules) error {
	if err := m.load(filepath.Join(dir, IgnoreFile), rel); err != nil {
		return err
	}
	if rules.RespectGitignore {
		return m.load(filepath.Join(dir, ".gitignore"), rel)
	}
	return nil
}

func (idx *Index) add(rel string) {
	key := Key(rel)
	idx.files = append(idx.files, rel)
	idx.keys[key] = append(idx.keys[key], rel)
	idx.set[rel] = struct{}{}
}

// Key returns the lookup key for a vault-relative path: the lowercased, NFC
// normalized file name, without the extension for notes.
func Key(rel string) string {
	name := path.Base(filepath.ToSlash(rel))
	if IsNote(name) {
		name = name[:len(name)-len(path.Ext(name))]
	}
	return norm.NFC.String(strings.ToLower(name))
}

// IsNote reports whether p names a markdown note.
func IsNote(p string) bool {
	return strings.EqualFold(path.Ext(p), ".md")
}

// Root returns the absolute vault root.
func (idx *Index) Root() string { return idx.root }

// Abs returns the absolute path of a vault-relative file.
func (idx *Index) Abs(rel string) string {
	return filepath.Join(idx.root, filepath.FromSlash(rel))
}

// Files returns every indexed file, sorted.
func (idx *Index) Files() []string { return idx.files }

// Notes returns the indexed notes, sorted.
func (idx *Index) Notes() []string {
	var out []string
	for _, f := range idx.files {
		if IsNote(f) {
			out = append(out, f)
		}
	}
	return out
}

// Contains reports whether rel is indexed.
func (idx *Index) Contains(rel string) bool {
	_, ok := idx.set[rel]
	return ok
}

// Candidates returns the files stored under key, sorted.
func (idx *Index) Candidates(key string) []string {
	return idx.keys[key]
}

// Len returns the number of indexed files.
func (idx *Index) Len() int { return len(idx.files) }
