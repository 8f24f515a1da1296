// Package parser extracts the indexed front-matter view of a Markdown note.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	fmlog "github.com/starford/leanjournal/internal/frontmatter"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Title  string
	Body   string
	Log    []string
	HasLog bool
	// Malformed is set when the front matter could not be decoded and the
	// log entries come from a raw text scan instead.
	Malformed bool
}

// yamlFormat decodes with yaml.v3, which rejects duplicate keys instead of
// silently keeping the last one.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

type meta struct {
	Title string `yaml:"title"`
	Log   any    `yaml:"log"`
}

// Parse decodes the front matter of data and returns the `log` entries in
// the form the metadata cache serves them: wikilink strings such as
// "[[2024-08-15]]", in document order.
func Parse(data []byte) (*Result, error) {
	var m meta
	body, err := frontmatter.Parse(bytes.NewReader(data), &m, yamlFormat)
	if err != nil {
		// Duplicate keys and other invalid YAML: fall back to the text scanner
		// so the note still reports the dates it carries.
		text := string(data)
		entries := fmlog.LogEntries(text)
		log := make([]string, len(entries))
		for i, d := range entries {
			log[i] = fmlog.LogLink(d)
		}
		return &Result{
			Body:      text,
			Log:       log,
			HasLog:    len(log) > 0,
			Title:     deriveTitle("", text),
			Malformed: true,
		}, nil
	}

	res := &Result{
		Body:  string(body),
		Log:   flattenLog(m.Log),
		Title: deriveTitle(m.Title, string(body)),
	}
	switch v := m.Log.(type) {
	case nil:
	case string:
		res.HasLog = v != ""
	default:
		res.HasLog = true
	}
	return res, nil
}

// flattenLog turns a decoded `log` value into link strings. Unquoted
// `- [[date]]` items decode as nested lists and are re-wrapped.
func flattenLog(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flattenItem(item))
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return []string{scalar(t)}
	}
}

func flattenItem(v any) string {
	if list, ok := v.([]any); ok {
		inner := make([]string, 0, len(list))
		for _, item := range list {
			inner = append(inner, flattenItem(item))
		}
		return "[" + strings.Join(inner, ", ") + "]"
	}
	return scalar(v)
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}

// deriveTitle returns the front matter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(title, body string) string {
	if title != "" {
		return title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
