// Package dates normalizes the relative date expressions users type or say
// into calendar dates.
package dates

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Layout is the normalized calendar date format.
const Layout = "2006-01-02"

var offsets = map[string]int{
	"hoy":                0,
	"mañana":             1,
	"pasado mañana":      2,
	"today":              0,
	"tomorrow":           1,
	"day after tomorrow": 2,
}

// Resolve maps expr against ref to a YYYY-MM-DD date.
//
// Known relative expressions are resolved in ref's location. A string that
// already parses as YYYY-MM-DD is returned unchanged, and so is anything
// else: invalid input is left for the caller's datetime construction to
// reject.
func Resolve(expr string, ref time.Time) string {
	key := strings.ToLower(strings.TrimSpace(norm.NFC.String(expr)))
	if days, ok := offsets[key]; ok {
		return ref.AddDate(0, 0, days).Format(Layout)
	}
	return expr
}
