package export

import (
	"github.com/starford/kenaz-export/pkg/frontmatter"
	"github.com/starford/kenaz-export/pkg/markdown"
)

// PostprocessorResult tells the chain how to proceed after a postprocessor.
type PostprocessorResult int

const (
	// Continue runs the next postprocessor.
	Continue PostprocessorResult = iota
	// StopHere skips the remaining postprocessors; the note is still exported.
	StopHere
	// StopAndSkipNote skips the remaining postprocessors and drops the note
	// together with the assets it referenced.
	StopAndSkipNote
)

func (r PostprocessorResult) String() string {
	switch r {
	case StopHere:
		return "stop_here"
	case StopAndSkipNote:
		return "stop_and_skip_note"
	}
	return "continue"
}

// Postprocessor observes or rewrites a note before it is written (root chain)
// or spliced into its parent (embed chain). It may replace the events and
// mutate the context's Destination and Frontmatter.
type Postprocessor func(ctx *Context, events *markdown.Events) PostprocessorResult

// Context is the per-note state handed to postprocessors. Every root note and
// every embed gets its own Context; embedded contexts never share the parent's
// frontmatter or destination.
type Context struct {
	// Destination is the absolute output path. Embedded contexts carry the
	// root note's destination for reference; changing it has no effect.
	Destination string
	// Frontmatter is never nil; a note without a block gets an empty mapping.
	Frontmatter *frontmatter.Frontmatter

	current     string
	root        string
	vault       string
	stack       []string
	strategy    FrontmatterStrategy
	hadBlock    bool
	embedded    bool
	unresolved  []string
	assets      []string
	assetsIndex map[string]struct{}
}

func newContext(current, root, vault string, fm *frontmatter.Frontmatter, hadBlock bool, strategy FrontmatterStrategy) *Context {
	if fm == nil {
		fm = frontmatter.New()
	}
	return &Context{
		Frontmatter: fm,
		current:     current,
		root:        root,
		vault:       vault,
		strategy:    strategy,
		hadBlock:    hadBlock,
		embedded:    current != root,
		assetsIndex: make(map[string]struct{}),
	}
}

// CurrentFile returns the vault-relative path of the note this context
// belongs to.
func (c *Context) CurrentFile() string { return c.current }

// RootFile returns the vault-relative path of the note being exported.
func (c *Context) RootFile() string { return c.root }

// VaultPath returns the absolute vault root.
func (c *Context) VaultPath() string { return c.vault }

// FileTree returns the embed chain leading to this note, root first.
func (c *Context) FileTree() []string {
	out := make([]string, len(c.stack))
	copy(out, c.stack)
	return out
}

// IsEmbed reports whether the context belongs to an embedded note.
func (c *Context) IsEmbed() bool { return c.embedded }

// FrontmatterStrategy returns the strategy the note will be written with.
func (c *Context) FrontmatterStrategy() FrontmatterStrategy { return c.strategy }

// HadFrontmatter reports whether the source note carried a frontmatter block.
func (c *Context) HadFrontmatter() bool { return c.hadBlock }

func (c *Context) schedule(asset string) {
	if _, ok := c.assetsIndex[asset]; ok {
		return
	}
	c.assetsIndex[asset] = struct{}{}
	c.assets = append(c.assets, asset)
}

// adopt merges the assets and unresolved links gathered by an embed.
func (c *Context) adopt(child *Context) {
	for _, a := range child.assets {
		c.schedule(a)
	}
	c.unresolved = append(c.unresolved, child.unresolved...)
}

// Chain runs postprocessors in registration order.
type Chain struct {
	postprocessors []Postprocessor
}

// NewChain creates a chain with the given postprocessors.
func NewChain(postprocessors ...Postprocessor) *Chain {
	return &Chain{postprocessors: postprocessors}
}

// Add appends a postprocessor to the chain.
func (c *Chain) Add(p Postprocessor) {
	c.postprocessors = append(c.postprocessors, p)
}

// Len returns the number of postprocessors in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.postprocessors)
}

// Run applies the chain until a postprocessor returns something other than
// Continue, and returns that result.
func (c *Chain) Run(ctx *Context, events *markdown.Events) PostprocessorResult {
	if c == nil {
		return Continue
	}
	for _, p := range c.postprocessors {
		if res := p(ctx, events); res != Continue {
			return res
		}
	}
	return Continue
}
