package export

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPathDoesNotExist is returned when the source, start-at path or the
	// destination (or its parent, for a single-file export) is missing.
	ErrPathDoesNotExist = errors.New("path does not exist")
	// ErrStartAtOutsideRoot is returned when the start-at path is not inside
	// the vault.
	ErrStartAtOutsideRoot = errors.New("start-at path is outside the vault root")
	// ErrRead wraps failures reading a note or asset.
	ErrRead = errors.New("read failed")
	// ErrWrite wraps failures writing output.
	ErrWrite = errors.New("write failed")
	// ErrRecursionLimitExceeded is the sentinel behind RecursionError.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
	// ErrFrontmatterDecode wraps frontmatter blocks that cannot be decoded.
	ErrFrontmatterDecode = errors.New("frontmatter decode failed")
)

// FileExportError reports a failure scoped to one root note.
type FileExportError struct {
	Path string
	Err  error
}

func (e *FileExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *FileExportError) Unwrap() error { return e.Err }

// RecursionError is returned when an embed chain revisits a note or grows
// deeper than the configured limit. Stack lists the notes in flight, outermost
// first, followed by the note that could not be entered.
type RecursionError struct {
	Stack []string
}

func (e *RecursionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrRecursionLimitExceeded, strings.Join(e.Stack, " -> "))
}

func (e *RecursionError) Unwrap() error { return ErrRecursionLimitExceeded }
