// Package dateformat renders times with Moment.js style patterns such as
// "YYYY-MM-DD" and "HH:mm", the format strings users type into settings.
package dateformat

import (
	"time"

	"github.com/nleeper/goment"
)

// Format renders t using pattern. Text inside square brackets is copied
// literally.
func Format(t time.Time, pattern string) string {
	g, err := goment.New(t)
	if err != nil {
		// goment only fails to parse strings; a time.Time always converts.
		return ""
	}
	return g.Format(pattern)
}

// Valid reports whether pattern contains at least one token, so it cannot
// collapse every day onto the same string.
func Valid(pattern string) bool {
	if pattern == "" {
		return false
	}
	ref := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	return Format(ref, pattern) != Format(ref.AddDate(1, 1, 1), pattern) ||
		Format(ref, pattern) != Format(ref.Add(61*time.Minute+time.Second), pattern)
}
