package mcpserver

// AnnotationSyntax describes how notes and comments are embedded in Org
// documents. LLM consumers should read it before editing documents by hand.
const AnnotationSyntax = `# Marginalia Annotation Syntax

Annotations live inside ordinary Org documents as bracket links whose
target starts with a kind prefix.

## Forms

` + "```" + `org
Some [[note:remember this][important]] text.
A dangling comment: [[comment:check the numbers]]
` + "```" + `

- ` + "`" + `note:` + "`" + ` marks a margin note, ` + "`" + `comment:` + "`" + ` a reviewer comment.
- The part after the prefix is the annotation body.
- The optional description is the annotated text. Without it the marker
  is shown as "[no text]".

## Rules

1. **Bodies are one line.** Newlines in a body are folded to single spaces.
2. **Brackets in bodies are escaped** with a backslash: ` + "`" + `\[` + "`" + ` and ` + "`" + `\]` + "`" + `.
   Backslashes right before a bracket or at the end of the body are doubled.
3. **A marker never spans** a blank line or a heading. Wrap text within one
   paragraph.
4. **Prefixes are lowercase.** ` + "`" + `[[Note:x]]` + "`" + ` is an ordinary link, not a marker.
5. **Ordinary links** (` + "`" + `https:` + "`" + `, ` + "`" + `file:` + "`" + `, ` + "`" + `id:` + "`" + `) are left alone by every tool.

## Editing

Prefer the ` + "`" + `add_annotation` + "`" + ` and ` + "`" + `delete_annotation` + "`" + ` tools over hand edits.
Deleting a marker with text keeps the text; deleting one without text
removes it entirely. Offsets are byte offsets into the UTF-8 file.

## Export

` + "`" + `export_document` + "`" + ` renders markers for a backend: html (superscript with a
title tooltip), latex (marginpar for notes, footnote for comments) and odt
(office:annotation). Any other backend keeps only the annotated text.
`
