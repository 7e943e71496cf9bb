package export

// DefaultMaxDepth is the default limit on nested embeds, counting the root
// note.
const DefaultMaxDepth = 10

// RecursionStack tracks the notes currently being expanded, outermost first.
// It never holds the same note twice and never grows beyond its limit.
type RecursionStack struct {
	paths []string
	max   int
}

// NewRecursionStack returns an empty stack holding at most max notes.
func NewRecursionStack(max int) *RecursionStack {
	if max <= 0 {
		max = DefaultMaxDepth
	}
	return &RecursionStack{max: max}
}

// Push enters p. It fails with a *RecursionError when p is already in flight
// or the stack is full.
func (s *RecursionStack) Push(p string) error {
	if len(s.paths) >= s.max || s.Contains(p) {
		return &RecursionError{Stack: append(s.Snapshot(), p)}
	}
	s.paths = append(s.paths, p)
	return nil
}

// Pop leaves the innermost note.
func (s *RecursionStack) Pop() {
	if len(s.paths) > 0 {
		s.paths = s.paths[:len(s.paths)-1]
	}
}

// Contains reports whether p is in flight.
func (s *RecursionStack) Contains(p string) bool {
	for _, q := range s.paths {
		if q == p {
			return true
		}
	}
	return false
}

// Depth returns the number of notes in flight.
func (s *RecursionStack) Depth() int { return len(s.paths) }

// Snapshot returns a copy of the notes in flight.
func (s *RecursionStack) Snapshot() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}
