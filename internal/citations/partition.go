// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citations fetches citing-event lists from the OpenCitations index
// and splits them around a target date.
package citations

import (
	"time"

	"github.com/pdiddy/retraction-meta/internal/dates"
	"github.com/pdiddy/retraction-meta/pkg/types"
)

// Policy controls how a citation dated exactly on the target date is counted.
type Policy string

const (
	// PolicyStrict counts an exact match in neither bucket.
	PolicyStrict Policy = "strict"

	// PolicyInclusiveAfter counts an exact match as "after".
	PolicyInclusiveAfter Policy = "inclusive-after"
)

// Counts holds the before/after split of a citation list.
type Counts struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// Partition counts how many citation entries were created before versus after
// the target date. Each entry's creation date is normalized first; entries
// whose date is unknown are skipped entirely so that ambiguous dates cannot
// bias the split. The function is pure: no I/O, no mutation of entries, and
// the result is independent of entry order.
func Partition(entries []types.CitationEntry, target time.Time, policy Policy) Counts {
	var c Counts
	for _, e := range entries {
		d := dates.Normalize(e.Creation)
		if !d.Known {
			continue
		}
		switch {
		case d.Time.Before(target):
			c.Before++
		case d.Time.After(target):
			c.After++
		case policy == PolicyInclusiveAfter:
			c.After++
		}
	}
	return c
}
