// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the shared record and configuration structures used
// across the pipeline stages.
package types

import (
	"encoding/json"
	"time"
)

// dateLayout is the canonical serialized form of a Date.
const dateLayout = "2006-01-02"

// Date is a calendar date that may be unknown. Loosely formatted source
// strings that carry only a year, or that fail to parse at all, degrade to
// the unknown value rather than an error. The zero value is unknown.
type Date struct {
	Time  time.Time
	Known bool
}

// NewDate returns a known Date for the given year, month, and day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Known: true}
}

// String returns the date in YYYY-MM-DD form, or an empty string when unknown.
func (d Date) String() string {
	if !d.Known {
		return ""
	}
	return d.Time.Format(dateLayout)
}

// MarshalJSON encodes a known date as "YYYY-MM-DD" and an unknown date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Known {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(dateLayout))
}

// UnmarshalJSON decodes null or an empty string as unknown.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = Date{Time: t, Known: true}
	return nil
}

// CitationEntry is one citing event returned by the OpenCitations index API.
// Creation is the citing work's creation date at whatever granularity the
// index holds (YYYY, YYYY-MM, or YYYY-MM-DD), possibly empty.
type CitationEntry struct {
	OCI      string `json:"oci"`
	Citing   string `json:"citing"`
	Cited    string `json:"cited"`
	Creation string `json:"creation"`
	Timespan string `json:"timespan,omitempty"`
}

// RetractionRecord is one row of the Retraction Watch dataset, enriched as it
// moves through the pipeline: raw columns at load time, normalized dates and
// correction time after cleaning, the fetched citation list after fetching,
// and the before/after split after aggregation.
type RetractionRecord struct {
	// Columns carried through from the input file.
	RecordID         string `json:"record_id,omitempty"`
	Title            string `json:"title,omitempty"`
	Journal          string `json:"journal,omitempty"`
	Publisher        string `json:"publisher,omitempty"`
	Author           string `json:"author,omitempty"`
	ArticleType      string `json:"article_type,omitempty"`
	RetractionNature string `json:"retraction_nature,omitempty"`
	Reason           string `json:"reason,omitempty"`
	RetractionDOI    string `json:"retraction_doi,omitempty"`

	// OriginalPaperDOI is the lookup key against the citation index.
	OriginalPaperDOI string `json:"original_paper_doi"`

	// Raw date strings as they appeared in the input.
	OriginalPaperDate string `json:"original_paper_date,omitempty"`
	RetractionDate    string `json:"retraction_date,omitempty"`

	// Original and Retracted are the normalized publication and retraction
	// dates. Records where either is unknown are dropped during cleaning.
	Original  Date `json:"original"`
	Retracted Date `json:"retracted"`

	// CorrectionDays is the number of days between publication and retraction.
	CorrectionDays int `json:"correction_time"`

	// Citations is the fetched citing-event list; empty when the fetch
	// failed or the index holds no citations for the DOI.
	Citations []CitationEntry `json:"cites"`

	// BeforeCount and AfterCount partition Citations around the
	// retraction date.
	BeforeCount int `json:"before_count"`
	AfterCount  int `json:"after_count"`
}
