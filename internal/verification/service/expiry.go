package service

import (
	"strings"
	"time"
)

// Layouts with a day; such a date stays valid through the end of that day
var dayLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
}

// Layouts without a day; such a date stays valid through the end of the month
var monthLayouts = []string{
	"1/2006",
	"1-2006",
	"1/06",
	"1-06",
}

// IsExpired reports whether a printed expiry date has passed at now.
// It returns nil when the date is missing or not in a known format.
func IsExpired(expiry string, now time.Time) *bool {
	expiry = strings.TrimSpace(expiry)
	if expiry == "" || strings.EqualFold(expiry, notAvailable) {
		return nil
	}

	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, expiry, now.Location()); err == nil {
			expired := !now.Before(t.AddDate(0, 0, 1))
			return &expired
		}
	}
	for _, layout := range monthLayouts {
		if t, err := time.ParseInLocation(layout, expiry, now.Location()); err == nil {
			expired := !now.Before(t.AddDate(0, 1, 0))
			return &expired
		}
	}
	return nil
}
