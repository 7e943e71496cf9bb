package mcpserver

// ExportConventions describes how notes are transformed on export so that
// LLM consumers can predict the output of render_note and export_vault.
const ExportConventions = `# kenaz-export Conventions

Every Markdown note in the vault is exported to the same relative path under
the destination. Non-note files are copied only when an exported note links
to or embeds them.

## Links

- ` + "`" + `[[Note]]` + "`" + ` becomes ` + "`" + `[Note](Note.md)` + "`" + `, relative to the exported note and percent-encoded.
- ` + "`" + `[[Note#Heading]]` + "`" + ` adds a ` + "`" + `#heading` + "`" + ` fragment (lowercased, spaces become dashes).
- ` + "`" + `[[Note|Label]]` + "`" + ` uses the label as link text.
- When several files share a name, the one closest to the linking note wins.
  Add a path fragment (` + "`" + `[[folder/Note]]` + "`" + `) to pick a specific one.
- A link that matches nothing is written as emphasized text: ` + "`" + `*Note*` + "`" + `.

## Embeds

- ` + "`" + `![[Note]]` + "`" + ` inlines the other note's body (its frontmatter is dropped).
- ` + "`" + `![[Note#Heading]]` + "`" + ` inlines only that section.
- ` + "`" + `![[image.png]]` + "`" + ` becomes a Markdown image and the file is copied.
- Embeds nest up to the configured depth. A cycle fails the notes involved.

## Frontmatter

- YAML frontmatter is kept by default when the note had a block.
- ` + "`" + `%%comments%%` + "`" + ` can be stripped with the remove_comments postprocessor.
- With only_published, notes need ` + "`" + `publish: true` + "`" + ` to be exported.

## Ignoring files

- ` + "`" + `.export-ignore` + "`" + ` files use gitignore syntax and apply to their directory.
- Hidden files and directories are skipped unless configured otherwise.
`
