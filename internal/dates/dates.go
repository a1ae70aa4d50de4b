// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dates normalizes the loosely formatted date strings found in the
// retraction dataset and in citation records.
package dates

import (
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/retraction-meta/pkg/types"
)

// Normalize converts a dash-separated date string into a calendar date.
// A year alone is too coarse to place relative to another date, so it maps
// to unknown. A year and month anchor to the first day of that month. A full
// date passes through. Anything else, including empty input and strings that
// fail to parse, degrades to unknown; Normalize never fails.
func Normalize(s string) types.Date {
	parts := strings.Split(strings.TrimSpace(s), "-")

	var year, month, day int
	switch len(parts) {
	case 2:
		year, month, day = atoi(parts[0]), atoi(parts[1]), 1
	case 3:
		year, month, day = atoi(parts[0]), atoi(parts[1]), atoi(parts[2])
	default:
		return types.Date{}
	}
	if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return types.Date{}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date silently rolls an out-of-range day into the next month
	// (Feb 30 becomes Mar 2); treat that as malformed.
	if t.Day() != day || t.Month() != time.Month(month) {
		return types.Date{}
	}
	return types.Date{Time: t, Known: true}
}

// DaysBetween returns the whole days from a to b, negative when b precedes a.
// The second return value is false when either date is unknown.
func DaysBetween(a, b types.Date) (int, bool) {
	if !a.Known || !b.Known {
		return 0, false
	}
	return int(b.Time.Sub(a.Time).Hours() / 24), true
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
