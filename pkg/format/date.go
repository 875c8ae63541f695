package format

import "time"

const (
	dateLayout = "2 Jan 2006"
	timeLayout = "03:04 PM"
)

// Date renders t as "D MMM YYYY" in t's location.
func Date(t time.Time) string {
	if t.IsZero() {
		return NA
	}
	return t.Format(dateLayout)
}

// Time renders the clock part of t as "hh:mm AM/PM".
func Time(t time.Time) string {
	if t.IsZero() {
		return NA
	}
	return t.Format(timeLayout)
}

// Text returns s, or NA when s is empty.
func Text(s string) string {
	if s == "" {
		return NA
	}
	return s
}
