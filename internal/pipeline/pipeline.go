// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one batch run: load the retraction dataset,
// normalize its dates, fetch citations per record, partition them around the
// retraction date, and write the enriched output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/retraction-meta/internal/cache"
	"github.com/pdiddy/retraction-meta/internal/citations"
	"github.com/pdiddy/retraction-meta/internal/dataset"
	"github.com/pdiddy/retraction-meta/internal/dates"
	"github.com/pdiddy/retraction-meta/pkg/types"
)

// Fetcher retrieves the citing-event list for one DOI. A failed fetch is
// reported as an error; the pipeline absorbs it as an empty list rather than
// aborting the batch.
type Fetcher interface {
	Citations(ctx context.Context, doi string) ([]types.CitationEntry, error)
}

// Summary holds the counts of one pipeline run, serialized to the run report.
type Summary struct {
	StartedAt     time.Time `yaml:"started_at"`
	Duration      string    `yaml:"duration"`
	Policy        string    `yaml:"count_policy"`
	TotalRows     int       `yaml:"total_rows"`
	DroppedDates  int       `yaml:"dropped_unusable_dates"`
	DroppedDOI    int       `yaml:"dropped_missing_doi"`
	Fetched       int       `yaml:"fetched"`
	CacheHits     int       `yaml:"cache_hits"`
	FetchFailures int       `yaml:"fetch_failures"`
	Written       int       `yaml:"written"`
}

// Runner executes the pipeline stages in order. Its log writer is scoped to
// one run and receives timestamped diagnostic lines; nothing in the
// functional output depends on it.
type Runner struct {
	cfg     types.PipelineConfig
	fetcher Fetcher
	cache   *cache.Store
	log     io.Writer

	// Seams for tests: the throttle sleep and its randomized duration.
	sleep func(time.Duration)
	randf func() float64
}

// New builds a Runner. store may be nil to disable the citation cache.
func New(cfg types.PipelineConfig, fetcher Fetcher, store *cache.Store, log io.Writer) *Runner {
	if cfg.Fetch.ProgressEvery <= 0 {
		cfg.Fetch.ProgressEvery = 50
	}
	if cfg.Fetch.SleepEvery <= 0 {
		cfg.Fetch.SleepEvery = 50
	}
	if cfg.Fetch.MaxSleep <= 0 {
		cfg.Fetch.MaxSleep = time.Second
	}
	return &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   store,
		log:     log,
		sleep:   time.Sleep,
		randf:   rand.Float64,
	}
}

// Run executes all stages. Only a whole-file read or write failure (or a
// cancelled context) is returned as an error; everything below the row level
// is absorbed and logged.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: time.Now().UTC(), Policy: string(r.policy())}
	r.logf("starting up")

	records, err := dataset.Read(r.cfg.InputPath, r.cfg.Reader, r.log)
	if err != nil {
		return sum, err
	}
	sum.TotalRows = len(records)
	r.logf("total number of rows: %d", sum.TotalRows)

	records = r.clean(records, &sum)

	if err := r.fetch(ctx, records, &sum); err != nil {
		return sum, err
	}

	r.aggregate(records)

	if err := dataset.Write(r.cfg.OutputPath, records); err != nil {
		return sum, err
	}
	sum.Written = len(records)
	sum.Duration = time.Since(sum.StartedAt).Round(time.Millisecond).String()
	r.logf("wrote %d records to %s", sum.Written, r.cfg.OutputPath)

	if r.cfg.ReportPath != "" {
		if err := writeReport(r.cfg.ReportPath, sum); err != nil {
			r.logf("warning: writing run report: %v", err)
		}
	}
	return sum, nil
}

// clean normalizes the two date columns, derives the correction time, and
// drops records that cannot be processed: an unknown correction time or a
// missing DOI. Dropped rows are counted, not fatal.
func (r *Runner) clean(records []types.RetractionRecord, sum *Summary) []types.RetractionRecord {
	var withDates []types.RetractionRecord
	for _, rec := range records {
		rec.Original = dates.Normalize(rec.OriginalPaperDate)
		rec.Retracted = dates.Normalize(rec.RetractionDate)
		days, ok := dates.DaysBetween(rec.Original, rec.Retracted)
		if !ok {
			continue
		}
		rec.CorrectionDays = days
		withDates = append(withDates, rec)
	}
	sum.DroppedDates = len(records) - len(withDates)
	r.logf("rows after dropping non-computable correction times: %d", len(withDates))

	var kept []types.RetractionRecord
	for _, rec := range withDates {
		if missingDOI(rec.OriginalPaperDOI) {
			continue
		}
		kept = append(kept, rec)
	}
	sum.DroppedDOI = len(withDates) - len(kept)
	r.logf("rows after dropping missing DOIs: %d", len(kept))
	return kept
}

// missingDOI reports whether the identifier column is unusable as a lookup
// key. The Retraction Watch export marks absent DOIs as "unavailable".
func missingDOI(doi string) bool {
	return doi == "" || strings.EqualFold(doi, "unavailable")
}

// fetch attaches a citation list to every record, consulting the cache first
// when one is configured. Each record's fetch has its own error boundary: a
// failure yields an empty list and the batch continues. The loop pauses for
// a randomized interval every SleepEvery fetches to avoid overwhelming the
// remote service.
func (r *Runner) fetch(ctx context.Context, records []types.RetractionRecord, sum *Summary) error {
	total := len(records)
	for i := range records {
		rec := &records[i]

		fromCache := false
		if r.cache != nil {
			if entries, ok, err := r.cache.Get(ctx, rec.OriginalPaperDOI); err == nil && ok {
				rec.Citations = entries
				sum.CacheHits++
				fromCache = true
			}
		}

		if !fromCache {
			entries, err := r.fetcher.Citations(ctx, rec.OriginalPaperDOI)
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				r.logf("fetching citations for DOI %s: %v", rec.OriginalPaperDOI, err)
				entries = []types.CitationEntry{}
				sum.FetchFailures++
			default:
				sum.Fetched++
				if r.cache != nil {
					if err := r.cache.Put(ctx, rec.OriginalPaperDOI, entries); err != nil {
						r.logf("warning: caching citations for DOI %s: %v", rec.OriginalPaperDOI, err)
					}
				}
			}
			if entries == nil {
				entries = []types.CitationEntry{}
			}
			rec.Citations = entries
		}

		processed := i + 1
		if processed%r.cfg.Fetch.ProgressEvery == 0 {
			r.logf("processed %d of %d rows", processed, total)
		}
		if !fromCache && processed%r.cfg.Fetch.SleepEvery == 0 {
			r.sleep(time.Duration(r.randf() * float64(r.cfg.Fetch.MaxSleep)))
		}
	}
	r.logf("collected all citations")
	return nil
}

// aggregate partitions each record's citations around its retraction date.
func (r *Runner) aggregate(records []types.RetractionRecord) {
	policy := r.policy()
	for i := range records {
		counts := citations.Partition(records[i].Citations, records[i].Retracted.Time, policy)
		records[i].BeforeCount = counts.Before
		records[i].AfterCount = counts.After
	}
	r.logf("finished processing")
}

func (r *Runner) policy() citations.Policy {
	if r.cfg.CountEqualAsAfter {
		return citations.PolicyInclusiveAfter
	}
	return citations.PolicyStrict
}

func (r *Runner) logf(format string, args ...any) {
	fmt.Fprintf(r.log, "%s: %s\n", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
}

func writeReport(path string, sum Summary) error {
	data, err := yaml.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
