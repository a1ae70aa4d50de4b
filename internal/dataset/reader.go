// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset reads the Retraction Watch CSV export and writes the
// enriched JSON-lines output. The export's byte encoding is unreliable, so
// reading detects a charset and falls back through a fixed candidate chain.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/pdiddy/retraction-meta/pkg/types"
)

const defaultSampleBytes = 10000

// Column headers of the Retraction Watch export. The three required ones
// must be present for a read attempt to succeed; the rest are carried
// through when available.
const (
	colRecordID         = "Record ID"
	colTitle            = "Title"
	colJournal          = "Journal"
	colPublisher        = "Publisher"
	colAuthor           = "Author"
	colArticleType      = "ArticleType"
	colRetractionNature = "RetractionNature"
	colReason           = "Reason"
	colRetractionDOI    = "RetractionDOI"
	colOriginalDOI      = "OriginalPaperDOI"
	colOriginalDate     = "OriginalPaperDate"
	colRetractionDate   = "RetractionDate"
)

// Read loads the retraction dataset at path. It samples a prefix of the file
// for charset detection, then tries the detected encoding, UTF-8, and
// ISO-8859-1 in order until one parses. Each attempt reports a status line to
// w. Malformed individual lines are skipped within an attempt; only all
// three attempts failing is an error.
func Read(path string, cfg types.ReaderConfig, w io.Writer) ([]types.RetractionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	sample := cfg.SampleBytes
	if sample <= 0 {
		sample = defaultSampleBytes
	}
	if sample > len(data) {
		sample = len(data)
	}

	delim := ','
	if cfg.Delimiter != "" {
		delim, _ = utf8.DecodeRuneInString(cfg.Delimiter)
	}

	for _, name := range candidates(detect(data[:sample])) {
		decoded, err := decode(data, name)
		if err != nil {
			fmt.Fprintf(w, "failed to read with encoding %s: %v\n", name, err)
			continue
		}
		records, skipped, err := parse(decoded, delim)
		if err != nil {
			fmt.Fprintf(w, "failed to read with encoding %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "file read successfully with encoding: %s\n", name)
		if skipped > 0 {
			fmt.Fprintf(w, "skipped %d malformed line(s)\n", skipped)
		}
		return records, nil
	}
	return nil, fmt.Errorf("reading %s: no candidate encoding produced a parseable table", path)
}

// detect returns the best-guess charset name for the sample, or an empty
// string when the detector has no opinion.
func detect(sample []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		return ""
	}
	return result.Charset
}

// candidates builds the ordered encoding chain: the detected charset first,
// then UTF-8, then ISO-8859-1, with duplicates collapsed.
func candidates(detected string) []string {
	var out []string
	for _, name := range []string{detected, "UTF-8", "ISO-8859-1"} {
		if name == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if strings.EqualFold(seen, name) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, name)
		}
	}
	return out
}

// decode returns a reader yielding data transcoded from the named encoding
// to UTF-8. The UTF-8 attempt validates the bytes up front: the x/text
// decoder would silently substitute replacement runes, which would defeat
// the fallback chain.
func decode(data []byte, name string) (io.Reader, error) {
	if strings.EqualFold(name, "UTF-8") {
		if !utf8.Valid(data) {
			return nil, errors.New("invalid UTF-8 byte sequence")
		}
		return bytes.NewReader(data), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return transform.NewReader(bytes.NewReader(data), enc.NewDecoder()), nil
}

// parse reads the delimited table, mapping columns by header name. Rows that
// fail to parse or carry the wrong field count are skipped and counted.
// A header missing any required column fails the whole attempt.
func parse(r io.Reader, delim rune) ([]types.RetractionRecord, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		col[name] = i
	}
	for _, required := range []string{colOriginalDOI, colOriginalDate, colRetractionDate} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("input is missing required column %q", required)
		}
	}

	var records []types.RetractionRecord
	skipped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading row: %w", err)
		}
		if len(row) != len(header) {
			skipped++
			continue
		}

		field := func(name string) string {
			if i, ok := col[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		records = append(records, types.RetractionRecord{
			RecordID:          field(colRecordID),
			Title:             field(colTitle),
			Journal:           field(colJournal),
			Publisher:         field(colPublisher),
			Author:            field(colAuthor),
			ArticleType:       field(colArticleType),
			RetractionNature:  field(colRetractionNature),
			Reason:            field(colReason),
			RetractionDOI:     field(colRetractionDOI),
			OriginalPaperDOI:  field(colOriginalDOI),
			OriginalPaperDate: field(colOriginalDate),
			RetractionDate:    field(colRetractionDate),
		})
	}
	return records, skipped, nil
}
