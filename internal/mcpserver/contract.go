package mcpserver

// DocumentFormat tells LLM clients how collection documents are stored and
// what makes one valid.
const DocumentFormat = `# Collection Document Format

Each collection is a folder under the content root. Every file in that folder
with the collection extension (` + "`.mdx`" + ` unless configured otherwise, matched
case-insensitively) is one entry. The entry slug is the file name without its
extension.

## Structure

` + "```" + `mdx
---
title: Hello world                 # frontmatter: a YAML mapping
publishedAt: 2024-01-15
tags: [go, mdx]
---

Body text. It is returned verbatim and never interpreted.
` + "```" + `

## Rules

1. The opening ` + "`---`" + ` must be the first line of the file. A file without it
   has empty frontmatter and is all body.
2. The block ends at the next line that is exactly ` + "`---`" + `. A missing
   closing line is a parse error.
3. Frontmatter must be a YAML mapping. Lists or scalars at the top level are
   parse errors.
4. Frontmatter is checked against the collection shape (see the
   ` + "`typedmdx://collections`" + ` resource):
   - every non-optional field must be present;
   - values must have the declared type; dates may be written as
     ` + "`2024-01-15`" + ` or RFC 3339 timestamps;
   - enum values must be one of the listed options;
   - strict collections reject keys the shape does not declare, loose ones
     drop them.
5. Every failing field is reported, as a path such as ` + "`socials[0].href`" + `.

## Listing vs reading

- ` + "`list_entries`" + ` leaves out documents that fail to parse or validate.
- ` + "`get_entry`" + ` returns the failure instead.
- ` + "`check_collection`" + ` lists every left-out document with its issues.
`
