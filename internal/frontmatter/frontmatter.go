// Package frontmatter edits the `log` field of a note's front matter block.
//
// The block is never decoded as YAML. Everything outside the `log` field is
// carried through byte-for-byte, and the scanner tolerates the malformed
// shapes that repeated edits and sync conflicts leave behind: duplicated
// keys, bare or bracketed dates, inline values and indented list items.
package frontmatter

import (
	"regexp"
	"slices"
	"strings"
)

const fence = "---"

var (
	// blockRe matches a front matter block at the very start of a document.
	// Group 1 is the block body (absent for an empty block), group 2 the
	// closing fence.
	blockRe = regexp.MustCompile(`(?s)\A---\n(?:(.*?)\n)??(---)[ \t]*(?:\n|\z)`)

	logKeyRe   = regexp.MustCompile(`^([ \t]*)log[ \t]*:(.*)$`)
	listItemRe = regexp.MustCompile(`^[ \t]*-(?:[ \t]|$)`)
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
)

type block struct {
	inner    string
	closeEnd int // offset just past the closing fence
	end      int // offset past the closing fence line, newline included
}

func locate(text string) (block, bool) {
	m := blockRe.FindStringSubmatchIndex(text)
	if m == nil {
		return block{}, false
	}
	b := block{closeEnd: m[5], end: m[1]}
	if m[2] >= 0 {
		b.inner = text[m[2]:m[3]]
	}
	return b, true
}

// HasFrontMatter reports whether text opens with a fenced front matter block.
func HasFrontMatter(text string) bool {
	_, ok := locate(text)
	return ok
}

// BodyOffset returns the offset of the text that follows the front matter
// block, or 0 when there is none.
func BodyOffset(text string) int {
	b, ok := locate(text)
	if !ok {
		return 0
	}
	return b.end
}

// LogLink wraps a date string as a wikilink.
func LogLink(date string) string {
	return "[[" + date + "]]"
}

func logField(date string) string {
	return "log:\n  - \"" + LogLink(date) + "\""
}

// InsertLogEntry appends a `log` list entry for date to the front matter
// block, creating the block when the document has none. An existing `log`
// field is left in place, so repeated calls stack duplicate keys; use
// CleanLogField to collapse them.
func InsertLogEntry(text, date string) string {
	b, ok := locate(text)
	if !ok {
		return fence + "\n" + logField(date) + "\n" + fence + "\n" + text
	}
	inner := logField(date)
	if b.inner != "" {
		inner = b.inner + "\n" + inner
	}
	return fence + "\n" + inner + "\n" + fence + text[b.closeEnd:]
}

// CleanLogField removes every `log` key and its value from the front matter
// block. Blank lines left in the block are dropped; when nothing else
// remains the whole block goes. Text without a block, or whose block has no
// `log` key, is returned unchanged.
func CleanLogField(text string) string {
	b, ok := locate(text)
	if !ok {
		return text
	}
	kept, removed := stripLogFields(strings.Split(b.inner, "\n"))
	if !removed {
		return text
	}

	nonBlank := kept[:0]
	for _, line := range kept {
		if strings.TrimSpace(line) != "" {
			nonBlank = append(nonBlank, line)
		}
	}
	rest := strings.TrimSpace(strings.Join(nonBlank, "\n"))

	if rest == "" {
		tail := text[b.end:]
		if HasFrontMatter(tail) {
			// Keep the separator so the body is not promoted to a block.
			tail = text[b.closeEnd:]
		}
		return tail
	}
	return fence + "\n" + rest + "\n" + fence + text[b.closeEnd:]
}

// LogEntries returns the dates referenced by every `log` key in the front
// matter block, in document order, duplicates included.
func LogEntries(text string) []string {
	b, ok := locate(text)
	if !ok {
		return nil
	}
	lines := strings.Split(b.inner, "\n")
	var out []string
	for i := 0; i < len(lines); {
		m := logKeyRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		end := skipValue(lines, i, len(m[1]), strings.TrimSpace(m[2]))
		out = append(out, valueDates(m[2])...)
		for _, line := range lines[i+1 : end] {
			out = append(out, valueDates(line)...)
		}
		i = end
	}
	return out
}

// HasLogEntry reports whether the `log` field already references date.
func HasLogEntry(text, date string) bool {
	return slices.Contains(LogEntries(text), date)
}

func stripLogFields(lines []string) ([]string, bool) {
	kept := make([]string, 0, len(lines))
	removed := false
	for i := 0; i < len(lines); {
		m := logKeyRe.FindStringSubmatch(lines[i])
		if m == nil {
			kept = append(kept, lines[i])
			i++
			continue
		}
		removed = true
		i = skipValue(lines, i, len(m[1]), strings.TrimSpace(m[2]))
	}
	return kept, removed
}

// skipValue returns the index of the first line after the value of the key
// on lines[i]. The value spans an unterminated flow list, deeper-indented
// lines, and list items at the key's own indentation.
func skipValue(lines []string, i, indent int, inline string) int {
	i++
	depth := bracketDepth(inline)
	for ; i < len(lines) && depth > 0; i++ {
		depth += bracketDepth(lines[i])
	}
	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}
		ind := indentOf(line)
		if ind > indent || (ind == indent && listItemRe.MatchString(line)) {
			i++
			continue
		}
		break
	}
	return i
}

func bracketDepth(s string) int {
	return strings.Count(s, "[") - strings.Count(s, "]")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// valueDates pulls date strings out of one line of a `log` value.
func valueDates(s string) []string {
	if ms := wikilinkRe.FindAllStringSubmatch(s, -1); len(ms) > 0 {
		out := make([]string, 0, len(ms))
		for _, m := range ms {
			if d := strings.TrimSpace(m[1]); d != "" {
				out = append(out, d)
			}
		}
		return out
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "-")
	s = strings.Trim(strings.TrimSpace(s), "[]")
	var out []string
	for _, part := range strings.Split(s, ",") {
		if d := strings.Trim(strings.TrimSpace(part), `"'`); d != "" {
			out = append(out, d)
		}
	}
	return out
}
