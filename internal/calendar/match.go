package calendar

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Match returns the first event whose title contains reference, ignoring
// case. Events are searched in the order given. An empty reference never
// matches.
func Match(events []Event, reference string) (Event, bool) {
	ref := fold(reference)
	if ref == "" {
		return Event{}, false
	}
	for _, ev := range events {
		if strings.Contains(fold(ev.Title), ref) {
			return ev, true
		}
	}
	return Event{}, false
}

// fold lower-cases s in NFC so composed and decomposed accents compare equal.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
