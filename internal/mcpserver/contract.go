package mcpserver

// LogFormatContract describes the `log` front matter convention the tools
// maintain, so clients writing notes can follow it.
const LogFormatContract = `# Log Property Format

Notes record the days they belong to in a ` + "`log`" + ` front matter list.

` + "```" + `markdown
---
title: Standup
log:
  - "[[2024-08-15]]"
---

Body text.
` + "```" + `

## Rules

1. Each item is a double-quoted wikilink to a day note, formatted with the
   configured date format (default ` + "`YYYY-MM-DD`" + `).
2. The first item is the day the note was created. The daily MOC links a
   note only on that day.
3. New notes are stamped automatically when automatic MOC is enabled. Use
   ` + "`backfill_log_property`" + ` for notes that predate it.
4. Duplicate or malformed ` + "`log`" + ` keys are cleaned up by ` + "`reset_logs`" + `,
   which removes the property from every note.

## Journal

The journal is one note with a ` + "`## [[date]]`" + ` heading per day, newest
first, and a ` + "`### time`" + ` heading per entry under it.
`
