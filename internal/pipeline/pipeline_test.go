// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/retraction-meta/internal/cache"
	"github.com/pdiddy/retraction-meta/pkg/types"
)

const testHeader = "Record ID,Title,Journal,Publisher,Author,ArticleType,RetractionNature,Reason,RetractionDOI,OriginalPaperDOI,OriginalPaperDate,RetractionDate"

// stubFetcher serves canned citation lists per DOI and records every call.
type stubFetcher struct {
	responses map[string][]types.CitationEntry
	errs      map[string]error
	calls     []string
}

func (f *stubFetcher) Citations(_ context.Context, doi string) ([]types.CitationEntry, error) {
	f.calls = append(f.calls, doi)
	if err, ok := f.errs[doi]; ok {
		return nil, err
	}
	return f.responses[doi], nil
}

func writeCSV(t *testing.T, dir string, rows ...string) string {
	t.Helper()
	content := testHeader + "\n"
	for _, row := range rows {
		content += row + "\n"
	}
	path := filepath.Join(dir, "retractions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readJSONL(t *testing.T, path string) []types.RetractionRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []types.RetractionRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec types.RetractionRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

// newTestRunner builds a Runner with throttling neutralized.
func newTestRunner(cfg types.PipelineConfig, fetcher Fetcher, store *cache.Store, log *bytes.Buffer) *Runner {
	r := New(cfg, fetcher, store, log)
	r.sleep = func(time.Duration) {}
	return r
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,Good Paper,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/x,2019-01-01,2020-06-15`,
		`2,No DOI,J,P,A,RA,Retraction,Error,10.2/r2,unavailable,2018-01-01,2019-01-01`,
		`3,Year Only,J,P,A,RA,Retraction,Error,10.2/r3,10.1/z,2015,2016-02-03`,
		`4,Uncited,J,P,A,RA,Retraction,Error,10.2/r4,10.1/q,2020-03,2021-07-09`,
	)
	output := filepath.Join(dir, "retractions_meta.json")

	fetcher := &stubFetcher{responses: map[string][]types.CitationEntry{
		"10.1/x": {
			{Creation: "2019-06-01"},
			{Creation: "2021-01-01"},
			{Creation: "2020-06-15"},
		},
	}}

	var log bytes.Buffer
	cfg := types.PipelineConfig{InputPath: input, OutputPath: output}
	sum, err := newTestRunner(cfg, fetcher, nil, &log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, sum.TotalRows)
	assert.Equal(t, 1, sum.DroppedDates)
	assert.Equal(t, 1, sum.DroppedDOI)
	assert.Equal(t, 2, sum.Fetched)
	assert.Equal(t, 2, sum.Written)
	assert.Equal(t, "strict", sum.Policy)
	assert.Equal(t, []string{"10.1/x", "10.1/q"}, fetcher.calls)

	records := readJSONL(t, output)
	require.Len(t, records, 2)

	got := records[0]
	assert.Equal(t, "10.1/x", got.OriginalPaperDOI)
	assert.Equal(t, "2019-01-01", got.Original.String())
	assert.Equal(t, "2020-06-15", got.Retracted.String())
	assert.Equal(t, 531, got.CorrectionDays)
	// The entry dated exactly on the retraction date counts in neither bucket.
	assert.Equal(t, 1, got.BeforeCount)
	assert.Equal(t, 1, got.AfterCount)
	assert.Len(t, got.Citations, 3)

	// The year-month publication date anchors to the first of the month.
	uncited := records[1]
	assert.Equal(t, "2020-03-01", uncited.Original.String())
	assert.Equal(t, 0, uncited.BeforeCount)
	assert.Equal(t, 0, uncited.AfterCount)

	assert.Contains(t, log.String(), "total number of rows: 4")
	assert.Contains(t, log.String(), "rows after dropping missing DOIs: 2")
}

func TestRunInclusiveAfterPolicy(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,Good Paper,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/x,2019-01-01,2020-06-15`,
	)
	output := filepath.Join(dir, "out.json")

	fetcher := &stubFetcher{responses: map[string][]types.CitationEntry{
		"10.1/x": {
			{Creation: "2019-06-01"},
			{Creation: "2021-01-01"},
			{Creation: "2020-06-15"},
		},
	}}

	var log bytes.Buffer
	cfg := types.PipelineConfig{InputPath: input, OutputPath: output, CountEqualAsAfter: true}
	sum, err := newTestRunner(cfg, fetcher, nil, &log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "inclusive-after", sum.Policy)

	records := readJSONL(t, output)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].BeforeCount)
	assert.Equal(t, 2, records[0].AfterCount)
}

func TestRunFetchFailureIsBestEffort(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,Unlucky,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/x,2019-01-01,2020-06-15`,
		`2,Lucky,J,P,A,RA,Retraction,Error,10.2/r2,10.1/y,2018-01-01,2019-01-01`,
	)
	output := filepath.Join(dir, "out.json")

	fetcher := &stubFetcher{
		responses: map[string][]types.CitationEntry{"10.1/y": {{Creation: "2020-01-01"}}},
		errs:      map[string]error{"10.1/x": errors.New("connection refused")},
	}

	var log bytes.Buffer
	cfg := types.PipelineConfig{InputPath: input, OutputPath: output}
	sum, err := newTestRunner(cfg, fetcher, nil, &log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.FetchFailures)
	assert.Equal(t, 1, sum.Fetched)
	assert.Equal(t, 2, sum.Written)

	records := readJSONL(t, output)
	require.Len(t, records, 2)
	assert.Empty(t, records[0].Citations)
	assert.Equal(t, 0, records[0].BeforeCount)
	assert.Equal(t, 0, records[0].AfterCount)
	assert.Equal(t, 1, records[1].AfterCount)
	assert.Contains(t, log.String(), "connection refused")
}

func TestRunReadFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := types.PipelineConfig{
		InputPath:  filepath.Join(dir, "absent.csv"),
		OutputPath: filepath.Join(dir, "out.json"),
	}
	var log bytes.Buffer
	_, err := newTestRunner(cfg, &stubFetcher{}, nil, &log).Run(context.Background())
	require.Error(t, err)
}

func TestRunWriteFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,Good,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/x,2019-01-01,2020-06-15`,
	)
	cfg := types.PipelineConfig{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "missing-dir", "out.json"),
	}
	var log bytes.Buffer
	_, err := newTestRunner(cfg, &stubFetcher{}, nil, &log).Run(context.Background())
	require.Error(t, err)
}

func TestRunConsultsCache(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,Cached,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/x,2019-01-01,2020-06-15`,
	)
	store, err := cache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	entries := []types.CitationEntry{{Creation: "2019-06-01"}, {Creation: "2021-01-01"}}

	first := &stubFetcher{responses: map[string][]types.CitationEntry{"10.1/x": entries}}
	cfg := types.PipelineConfig{InputPath: input, OutputPath: filepath.Join(dir, "out1.json")}
	var log bytes.Buffer
	sum, err := newTestRunner(cfg, first, store, &log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Fetched)
	assert.Equal(t, 0, sum.CacheHits)

	// Second run must be served entirely from the cache.
	second := &stubFetcher{}
	cfg.OutputPath = filepath.Join(dir, "out2.json")
	sum, err = newTestRunner(cfg, second, store, &log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Fetched)
	assert.Equal(t, 1, sum.CacheHits)
	assert.Empty(t, second.calls)

	records := readJSONL(t, cfg.OutputPath)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].BeforeCount)
	assert.Equal(t, 1, records[0].AfterCount)
}

func TestRunThrottlesFetchLoop(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,A,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/a,2019-01-01,2020-06-15`,
		`2,B,J,P,A,RA,Retraction,Fraud,10.2/r2,10.1/b,2019-01-01,2020-06-15`,
		`3,C,J,P,A,RA,Retraction,Fraud,10.2/r3,10.1/c,2019-01-01,2020-06-15`,
	)
	cfg := types.PipelineConfig{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "out.json"),
	}
	cfg.Fetch.SleepEvery = 2
	cfg.Fetch.MaxSleep = 100 * time.Millisecond

	var log bytes.Buffer
	r := New(cfg, &stubFetcher{}, nil, &log)

	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }
	r.randf = func() float64 { return 0.5 }

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// Three records with SleepEvery=2 pause exactly once, for rand*MaxSleep.
	require.Len(t, slept, 1)
	assert.Equal(t, 50*time.Millisecond, slept[0])
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,A,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/a,2019-01-01,2020-06-15`,
	)
	cfg := types.PipelineConfig{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "out.json"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log bytes.Buffer
	fetcher := &stubFetcher{errs: map[string]error{"10.1/a": context.Canceled}}
	_, err := newTestRunner(cfg, fetcher, nil, &log).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunWritesReport(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir,
		`1,Good,J,P,A,RA,Retraction,Fraud,10.2/r1,10.1/x,2019-01-01,2020-06-15`,
	)
	report := filepath.Join(dir, "report.yaml")
	cfg := types.PipelineConfig{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "out.json"),
		ReportPath: report,
	}

	var log bytes.Buffer
	_, err := newTestRunner(cfg, &stubFetcher{}, nil, &log).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "total_rows: 1")
	assert.Contains(t, string(data), "count_policy: strict")
	assert.Contains(t, string(data), "written: 1")
}
