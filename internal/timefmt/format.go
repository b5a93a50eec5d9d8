// Package timefmt renders message times the way the chat list shows them.
package timefmt

import "time"

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// UTC is the default Clock.
func UTC() time.Time { return time.Now().UTC() }

// Format renders t relative to now: "HH:MM" on the same UTC day, "Yesterday"
// when exactly one whole day has elapsed, otherwise "DD/MM/YYYY". A nil t
// renders as "".
func Format(t *time.Time, now time.Time) string {
	if t == nil {
		return ""
	}
	ts, n := t.UTC(), now.UTC()
	if sameDay(ts, n) {
		return Clock24(ts)
	}
	// Elapsed time truncated to whole days, not calendar days: 23:00 yesterday
	// seen at 01:00 today is still a dated timestamp.
	if int(n.Sub(ts)/(24*time.Hour)) == 1 {
		return "Yesterday"
	}
	return ts.Format("02/01/2006")
}

// Clock24 renders the UTC wall-clock time of t as "HH:MM".
func Clock24(t time.Time) string {
	return t.UTC().Format("15:04")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
