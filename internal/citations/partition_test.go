// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citations

import (
	"testing"
	"time"

	"github.com/pdiddy/retraction-meta/pkg/types"
)

func entries(creations ...string) []types.CitationEntry {
	out := make([]types.CitationEntry, len(creations))
	for i, c := range creations {
		out[i] = types.CitationEntry{Creation: c}
	}
	return out
}

func TestPartition(t *testing.T) {
	target := time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		in     []types.CitationEntry
		policy Policy
		want   Counts
	}{
		{"empty list", nil, PolicyStrict, Counts{}},
		{"all before", entries("2019-06-01", "2020-06-14"), PolicyStrict, Counts{Before: 2}},
		{"all after", entries("2020-06-16", "2021-01-01"), PolicyStrict, Counts{After: 2}},
		{"split", entries("2019-06-01", "2021-01-01"), PolicyStrict, Counts{Before: 1, After: 1}},
		{"exact match counts nowhere under strict", entries("2019-06-01", "2021-01-01", "2020-06-15"), PolicyStrict, Counts{Before: 1, After: 1}},
		{"exact match counts as after under inclusive", entries("2019-06-01", "2021-01-01", "2020-06-15"), PolicyInclusiveAfter, Counts{Before: 1, After: 2}},
		{"year-only entries are skipped", entries("2020", "2021-05-02"), PolicyStrict, Counts{After: 1}},
		{"empty creation dates are skipped", entries("", "2019-01"), PolicyStrict, Counts{Before: 1}},
		{"year-month granularity compares as first of month", entries("2020-06"), PolicyStrict, Counts{Before: 1}},
		{"malformed dates are skipped", entries("not-a-date", "12-34-56-78"), PolicyStrict, Counts{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(tt.in, target, tt.policy)
			if got != tt.want {
				t.Errorf("Partition() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPartitionOrderIndependent(t *testing.T) {
	target := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	creations := []string{"2019-06-01", "2021-01-01", "2022-03", "2020", "2020-12-31", ""}

	// Rotate through every cyclic permutation; the counts must not move.
	want := Partition(entries(creations...), target, PolicyStrict)
	for shift := 1; shift < len(creations); shift++ {
		rotated := append(append([]string{}, creations[shift:]...), creations[:shift]...)
		got := Partition(entries(rotated...), target, PolicyStrict)
		if got != want {
			t.Errorf("rotation %d: Partition() = %+v, want %+v", shift, got, want)
		}
	}
}

func TestPartitionDoesNotMutateInput(t *testing.T) {
	target := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	in := entries("2020-01-01", "2022-01-01")
	Partition(in, target, PolicyStrict)
	if in[0].Creation != "2020-01-01" || in[1].Creation != "2022-01-01" {
		t.Errorf("input mutated: %+v", in)
	}
}
