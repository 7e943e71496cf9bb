package markdown

import "strings"

type tokenizer struct {
	src    string
	pos    int
	events Events
	text   strings.Builder
}

// Tokenize splits a markdown body into events.
func Tokenize(src string) Events {
	t := &tokenizer{src: src}
	for t.pos < len(t.src) {
		if t.atLineStart() {
			if t.fence() || t.blank() {
				continue
			}
			t.heading()
		}
		t.line()
	}
	t.flush()
	return t.events
}

func (t *tokenizer) atLineStart() bool {
	return t.pos == 0 || t.src[t.pos-1] == '\n'
}

func (t *tokenizer) emit(ev Event) {
	t.flush()
	t.events = append(t.events, ev)
}

func (t *tokenizer) flush() {
	if t.text.Len() == 0 {
		return
	}
	t.events = append(t.events, Event{Kind: Text, Text: t.text.String()})
	t.text.Reset()
}

// lineEnd returns the index of the newline ending the line containing i, or
// len(src).
func (t *tokenizer) lineEnd(i int) int {
	if n := strings.IndexByte(t.src[i:], '\n'); n >= 0 {
		return i + n
	}
	return len(t.src)
}

func (t *tokenizer) lineStart(i int) int {
	return strings.LastIndexByte(t.src[:i], '\n') + 1
}

// fence consumes a fenced code block starting at the current line.
func (t *tokenizer) fence() bool {
	end := t.lineEnd(t.pos)
	marker, ok := fenceMarker(t.src[t.pos:end])
	if !ok {
		return false
	}
	next := end + 1
	for next < len(t.src) {
		e := t.lineEnd(next)
		line := strings.TrimRight(strings.TrimLeft(t.src[next:e], " "), " \t\r")
		next = e + 1
		if strings.HasPrefix(line, marker) && strings.Trim(line, marker[:1]) == "" {
			break
		}
	}
	if next > len(t.src) {
		next = len(t.src)
	}
	t.emit(Event{Kind: CodeBlock, Text: t.src[t.pos:next]})
	t.pos = next
	return true
}

func fenceMarker(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return "", false
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return "", false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return "", false
	}
	if c == '`' && strings.ContainsRune(trimmed[n:], '`') {
		return "", false
	}
	return trimmed[:n], true
}

// blank consumes a whitespace-only line.
func (t *tokenizer) blank() bool {
	end := t.lineEnd(t.pos)
	line := t.src[t.pos:end]
	if strings.TrimSpace(line) != "" {
		return false
	}
	if end == len(t.src) {
		if line != "" {
			t.text.WriteString(line)
		}
		t.pos = end
		return true
	}
	content, nl := splitCR(line)
	t.text.WriteString(content)
	t.emit(Event{Kind: LineEnd, Text: nl + "\n"})
	t.pos = end + 1
	return true
}

// heading emits a Heading event when the current line is an ATX heading.
func (t *tokenizer) heading() {
	end := t.lineEnd(t.pos)
	level, marker := headingMarker(t.src[t.pos:end])
	if level == 0 {
		return
	}
	t.emit(Event{Kind: Heading, Level: level, Text: marker})
	t.pos += len(marker)
}

func headingMarker(line string) (int, string) {
	trimmed := strings.TrimLeft(line, " ")
	indent := len(line) - len(trimmed)
	if indent > 3 {
		return 0, ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0, ""
	}
	rest := trimmed[n:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest != "\r" {
		return 0, ""
	}
	spaces := len(rest) - len(strings.TrimLeft(rest, " \t"))
	return n, line[:indent+n+spaces]
}

// line scans inline content up to the end of the current line and emits the
// newline that terminates it.
func (t *tokenizer) line() {
	end := t.lineEnd(t.pos)
	contentEnd, brk := t.classify(end)
	if contentEnd < t.pos {
		contentEnd = t.pos
		if brk.Kind != Text {
			brk.Text = t.src[t.pos : end+1]
		}
	}
	if next, jumped := t.inline(contentEnd); jumped {
		t.pos = next
		return
	}
	t.pos = contentEnd
	if brk.Kind == Text {
		t.text.WriteString(t.src[contentEnd:end])
		t.pos = end
		return
	}
	t.emit(brk)
	t.pos = end + 1
}

// classify decides how the newline at end is represented. It returns the end
// of inline content (excluding a hard break marker) and the break event; a
// Text break means the line is the last one and has no newline.
func (t *tokenizer) classify(end int) (int, Event) {
	if end == len(t.src) {
		return end, Event{Kind: Text}
	}
	start := t.lineStart(t.pos)
	line := t.src[start:end]
	content, cr := splitCR(line)
	contentEnd := start + len(content)
	lineEnd := Event{Kind: LineEnd, Text: cr + "\n"}

	if lvl, _ := headingMarker(line); lvl > 0 {
		return contentEnd, lineEnd
	}
	if isTableRow(line) || !t.continues(line, end+1) {
		return contentEnd, lineEnd
	}
	if strings.HasSuffix(content, "\\") && !strings.HasSuffix(content, "\\\\") {
		return contentEnd - 1, Event{Kind: HardBreak, Text: "\\" + cr + "\n"}
	}
	trimmed := strings.TrimRight(content, " ")
	if len(content)-len(trimmed) >= 2 {
		return start + len(trimmed), Event{Kind: HardBreak, Text: content[len(trimmed):] + cr + "\n"}
	}
	return contentEnd, Event{Kind: SoftBreak, Text: cr + "\n"}
}

// continues reports whether the line starting at i continues the paragraph
// of cur. A quote line followed by another quote line with content continues
// the paragraph inside the quote.
func (t *tokenizer) continues(cur string, i int) bool {
	if i >= len(t.src) {
		return false
	}
	line := t.src[i:t.lineEnd(i)]
	if next, ok := quoteContent(line); ok {
		inner, quoted := quoteContent(cur)
		if !quoted || strings.TrimSpace(inner) == "" {
			return false
		}
		return paragraphLine(next)
	}
	return paragraphLine(line)
}

func paragraphLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if lvl, _ := headingMarker(line); lvl > 0 {
		return false
	}
	if _, ok := fenceMarker(line); ok {
		return false
	}
	return !isBlockStart(line)
}

// quoteContent strips the ">" markers of a block quote line.
func quoteContent(line string) (string, bool) {
	s := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(s, ">") {
		return "", false
	}
	for strings.HasPrefix(s, ">") {
		s = strings.TrimLeft(s[1:], " \t")
	}
	return s, true
}

func isBlockStart(line string) bool {
	s := strings.TrimLeft(line, " \t")
	if s == "" {
		return false
	}
	switch s[0] {
	case '>', '|':
		return true
	case '-', '*', '+':
		if len(s) == 1 || s[1] == ' ' || s[1] == '\t' {
			return true
		}
		if isThematicBreak(s) {
			return true
		}
	}
	if isThematicBreak(s) {
		return true
	}
	n := 0
	for n < len(s) && n < 9 && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n > 0 && n+1 <= len(s) && (s[n] == '.' || s[n] == ')') {
		return n+1 == len(s) || s[n+1] == ' ' || s[n+1] == '\t'
	}
	return false
}

func isThematicBreak(s string) bool {
	s = strings.TrimRight(s, " \t\r")
	if len(s) < 3 {
		return false
	}
	c := s[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	count := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case c:
			count++
		case ' ', '\t':
		default:
			return false
		}
	}
	return count >= 3
}

func isTableRow(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "|")
}

func splitCR(line string) (string, string) {
	if strings.HasSuffix(line, "\r") {
		return line[:len(line)-1], "\r"
	}
	return line, ""
}

// inline scans [t.pos, end). A comment may close beyond end, in which case it
// returns the position after the comment and jumped=true.
func (t *tokenizer) inline(end int) (int, bool) {
	i := t.pos
	for i < end {
		s := t.src[i:end]
		switch {
		case s[0] == '\\' && len(s) > 1:
			t.text.WriteString(s[:2])
			i += 2
		case s[0] == '`':
			n := runLength(s, '`')
			if close := findCodeClose(s, n); close > 0 {
				t.emit(Event{Kind: Code, Text: s[:close]})
				i += close
				continue
			}
			t.text.WriteString(s[:n])
			i += n
		case strings.HasPrefix(s, "%%"):
			close := commentClose(t.src[i+2:])
			if close < 0 {
				t.text.WriteString("%%")
				i += 2
				continue
			}
			next := i + 2 + close + 2
			t.emit(Event{Kind: Comment, Text: t.src[i:next]})
			if next > end {
				return next, true
			}
			i = next
		case strings.HasPrefix(s, "![["):
			if n, target, ok := wikilink(s[1:]); ok {
				t.emit(Event{Kind: WikiLink, Target: target, Embed: true})
				i += n + 1
				continue
			}
			t.text.WriteByte('!')
			i++
		case strings.HasPrefix(s, "[["):
			if n, target, ok := wikilink(s); ok {
				t.emit(Event{Kind: WikiLink, Target: target})
				i += n
				continue
			}
			t.text.WriteString("[[")
			i += 2
		case strings.HasPrefix(s, "!["):
			if n, text, dest, ok := inlineLink(s[1:]); ok {
				t.emit(Event{Kind: Image, Text: text, Dest: dest})
				i += n + 1
				continue
			}
			t.text.WriteByte('!')
			i++
		case s[0] == '[':
			if n, text, dest, ok := inlineLink(s); ok {
				t.emit(Event{Kind: Link, Text: text, Dest: dest})
				i += n
				continue
			}
			t.text.WriteByte('[')
			i++
		default:
			j := 1
			for j < len(s) && !special(s[j]) {
				j++
			}
			t.text.WriteString(s[:j])
			i += j
		}
	}
	return i, false
}

// commentClose returns the offset of the "%%" closing a comment whose body
// starts at s, or -1. A comment never spans a fenced code block.
func commentClose(s string) int {
	close := strings.Index(s, "%%")
	if close < 0 {
		return -1
	}
	for nl := strings.IndexByte(s, '\n'); nl >= 0 && nl < close; {
		start := nl + 1
		next := strings.IndexByte(s[start:], '\n')
		line := s[start:]
		if next >= 0 {
			line = s[start : start+next]
		}
		if _, ok := fenceMarker(line); ok {
			return -1
		}
		if next < 0 {
			break
		}
		nl = start + next
	}
	return close
}

func special(c byte) bool {
	switch c {
	case '\\', '`', '%', '!', '[':
		return true
	}
	return false
}

func runLength(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

// findCodeClose returns the end offset of a code span opened by n backticks.
func findCodeClose(s string, n int) int {
	i := n
	for i < len(s) {
		j := strings.IndexByte(s[i:], '`')
		if j < 0 {
			return 0
		}
		i += j
		m := runLength(s[i:], '`')
		if m == n {
			return i + m
		}
		i += m
	}
	return 0
}

// wikilink parses "[[target]]" at the start of s.
func wikilink(s string) (int, string, bool) {
	close := strings.Index(s[2:], "]]")
	if close < 0 {
		return 0, "", false
	}
	target := s[2 : 2+close]
	if strings.TrimSpace(target) == "" || strings.ContainsAny(target, "[\n") {
		return 0, "", false
	}
	return close + 4, target, true
}

// inlineLink parses "[text](dest)" at the start of s.
func inlineLink(s string) (int, string, string, bool) {
	depth := 0
	i := 0
	closeText := -1
	for ; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				closeText = i
			}
		}
		if closeText >= 0 {
			break
		}
	}
	if closeText < 0 || closeText+1 >= len(s) || s[closeText+1] != '(' {
		return 0, "", "", false
	}
	depth = 0
	for j := closeText + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j + 1, s[1:closeText], s[closeText+2 : j], true
			}
		}
	}
	return 0, "", "", false
}
