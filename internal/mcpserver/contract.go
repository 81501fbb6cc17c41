package mcpserver

// DocFormatContract describes the Markdown format LLM consumers should follow
// when creating documents.
const DocFormatContract = `# The Dock Document Format Contract

Notes, journal entries and briefs are Markdown with an optional front matter
header. Lists are checklists and are managed through list entries, not Markdown.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – falls back to the title argument
tags: [tag-one, tag-two]            # OPTIONAL – merged with the tags argument
date: 2025-01-15                    # OPTIONAL – briefs only, ISO-8601 date
type: brief                         # OPTIONAL – vault files only
---

Body text in standard Markdown. Inline #tags are collected too.
` + "```" + `

## Rules

1. **Front matter** is delimited by ` + "`" + `---` + "`" + ` lines and must be the first
   thing in the content. Values are plain ` + "`" + `key: value` + "`" + ` pairs; lists use
   ` + "`" + `[a, b]` + "`" + `.
2. **Title** comes from the title argument, then the front matter ` + "`" + `title` + "`" + `,
   then "Untitled".
3. **Tags** are collected from the tags argument, front matter and inline
   ` + "`" + `#tags` + "`" + `, deduplicated ignoring case. Use lowercase kebab-case.
4. **Headings** at levels 2 and 3 form the document outline. Use ` + "`" + `##` + "`" + `
   for sections and ` + "`" + `###` + "`" + ` for subsections.
5. **Backlinks** are found by title: mention another document's exact title in
   the body to link to it.
6. **No raw HTML.** It is stripped when rendering.
7. **Encoding** is UTF-8.

## Briefs

A brief is dated by its front matter ` + "`" + `date` + "`" + `, else by a
YYYY-MM-DD date in its title, else by its creation day. Market lines are compared with the previous brief
when they read ` + "`" + `Label: value` + "`" + `, for example:

` + "```" + `markdown
---
title: Morning Brief 2025-01-20
date: 2025-01-20
tags: [markets]
---

## Markets

- S&P 500: 4,890.97
- Nasdaq: 15,360.29
- BTC: $41,250
` + "```" + `
`
