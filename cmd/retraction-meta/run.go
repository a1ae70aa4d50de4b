// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/retraction-meta/internal/cache"
	"github.com/pdiddy/retraction-meta/internal/citations"
	"github.com/pdiddy/retraction-meta/internal/pipeline"
	"github.com/pdiddy/retraction-meta/internal/secrets"
	"github.com/pdiddy/retraction-meta/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "retraction-meta/0.1"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full retraction-enrichment pipeline",
	Long: `Run loads the retraction dataset, normalizes its date columns, fetches the
citing works of every retracted article from the OpenCitations index, counts
citations before and after each retraction date, and writes the enriched
records as JSON lines.

Rows whose correction time cannot be computed or whose DOI is missing are
dropped. A fetch failure for one DOI yields empty counts for that record and
never aborts the batch.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("input", "retractions.csv", "retraction dataset to read")
	runCmd.Flags().String("output", "retractions_meta.json", "JSON-lines file to write")
	runCmd.Flags().String("report", "", "optional YAML run report path")
	runCmd.Flags().String("cache-db", "", "optional SQLite citation cache path")
	runCmd.Flags().String("log-file", "", "write diagnostics to this file instead of stderr")
	runCmd.Flags().String("delimiter", ",", "input field delimiter")
	runCmd.Flags().Int("sample-bytes", 10000, "file prefix length used for charset detection")
	runCmd.Flags().Duration("timeout", defaultTimeout, "HTTP request timeout")
	runCmd.Flags().Int("max-retries", 2, "retry attempts on HTTP 429")
	runCmd.Flags().Float64("rate-limit", 2.0, "maximum API requests per second")
	runCmd.Flags().Int("progress-every", 50, "log fetch progress every N records")
	runCmd.Flags().Int("sleep-every", 50, "pause the fetch loop every N records")
	runCmd.Flags().Duration("max-sleep", time.Second, "upper bound of the randomized pause")
	runCmd.Flags().String("access-token", "", "OpenCitations access token (default: .secrets/opencitations-access-token)")
	runCmd.Flags().Bool("count-equal-as-after", false, "count citations dated exactly on the retraction date as after")

	viper.BindPFlags(runCmd.Flags())

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := types.PipelineConfig{
		InputPath:         viper.GetString("input"),
		OutputPath:        viper.GetString("output"),
		ReportPath:        viper.GetString("report"),
		CacheDB:           viper.GetString("cache-db"),
		CountEqualAsAfter: viper.GetBool("count-equal-as-after"),
		Reader: types.ReaderConfig{
			Delimiter:   viper.GetString("delimiter"),
			SampleBytes: viper.GetInt("sample-bytes"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("timeout"),
				UserAgent: defaultUserAgent,
			},
			AccessToken:   secretDefault(secrets.OpenCitationsToken, viper.GetString("access-token")),
			MaxRetries:    viper.GetInt("max-retries"),
			RateLimit:     viper.GetFloat64("rate-limit"),
			ProgressEvery: viper.GetInt("progress-every"),
			SleepEvery:    viper.GetInt("sleep-every"),
			MaxSleep:      viper.GetDuration("max-sleep"),
		},
	}

	logSink := io.Writer(os.Stderr)
	if path := viper.GetString("log-file"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating log file: %w", err)
		}
		defer f.Close()
		logSink = f
	}

	var store *cache.Store
	if cfg.CacheDB != "" {
		var err error
		store, err = cache.Open(cfg.CacheDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	client := citations.NewClient(&http.Client{Timeout: cfg.Fetch.Timeout}, cfg.Fetch)
	runner := pipeline.New(cfg, client, store, logSink)

	sum, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote %d records (%d fetched, %d cached, %d fetch failures, %d dropped)\n",
		sum.Written, sum.Fetched, sum.CacheHits, sum.FetchFailures, sum.DroppedDates+sum.DroppedDOI)
	return nil
}
