package export

import (
	"slices"

	"github.com/starford/kenaz-export/pkg/markdown"
)

// SoftbreaksToHardbreaks turns every soft line break into a hard one, so
// renderers that join paragraph lines keep the author's line breaks.
func SoftbreaksToHardbreaks(_ *Context, events *markdown.Events) PostprocessorResult {
	for i, ev := range *events {
		if ev.Kind != markdown.SoftBreak {
			continue
		}
		nl := ev.Text
		if nl == "" {
			nl = "\n"
		}
		(*events)[i] = markdown.Event{Kind: markdown.HardBreak, Text: "  " + nl}
	}
	return Continue
}

// OnlyPublished skips notes unless their frontmatter sets publish to the
// boolean true.
func OnlyPublished(ctx *Context, _ *markdown.Events) PostprocessorResult {
	if ctx.Frontmatter.Bool("publish") {
		return Continue
	}
	return StopAndSkipNote
}

// RemoveComments drops %%comments%%.
func RemoveComments(_ *Context, events *markdown.Events) PostprocessorResult {
	*events = slices.DeleteFunc(*events, func(ev markdown.Event) bool {
		return ev.Kind == markdown.Comment
	})
	return Continue
}

// FilterByTags skips notes carrying any tag in skip, and, when only is not
// empty, notes carrying none of the tags in only. Exclusion wins over
// inclusion. A note without tags has an empty tag list; a tags value that is
// not a list lets the note through.
func FilterByTags(skip, only []string) Postprocessor {
	return func(ctx *Context, _ *markdown.Events) PostprocessorResult {
		tags, ok := ctx.Frontmatter.Strings("tags")
		if !ok && ctx.Frontmatter.Has("tags") {
			return Continue
		}
		for _, t := range skip {
			if slices.Contains(tags, t) {
				return StopAndSkipNote
			}
		}
		if len(only) == 0 {
			return Continue
		}
		for _, t := range only {
			if slices.Contains(tags, t) {
				return Continue
			}
		}
		return StopAndSkipNote
	}
}
