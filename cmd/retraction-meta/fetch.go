// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/retraction-meta/internal/citations"
	"github.com/pdiddy/retraction-meta/internal/secrets"
	"github.com/pdiddy/retraction-meta/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [dois...]",
	Short: "Fetch citation lists for individual DOIs",
	Long: `Fetch queries the OpenCitations index for each DOI and prints the citing
events as indented JSON, keyed by DOI. A failed lookup prints a warning and
an empty list for that DOI.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Duration("timeout", defaultTimeout, "HTTP request timeout")
	fetchCmd.Flags().Int("max-retries", 2, "retry attempts on HTTP 429")
	fetchCmd.Flags().Float64("rate-limit", 2.0, "maximum API requests per second")
	fetchCmd.Flags().String("access-token", "", "OpenCitations access token (default: .secrets/opencitations-access-token)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more DOIs")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")
	token, _ := cmd.Flags().GetString("access-token")

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		AccessToken: secretDefault(secrets.OpenCitationsToken, token),
		MaxRetries:  maxRetries,
		RateLimit:   rateLimit,
	}
	client := citations.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg)

	failed := 0
	out := make(map[string][]types.CitationEntry, len(args))
	for _, doi := range args {
		entries, err := client.Citations(context.Background(), doi)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", doi, err)
			entries = []types.CitationEntry{}
			failed++
		}
		out[doi] = entries
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	if failed == len(args) {
		return fmt.Errorf("all %d lookup(s) failed", failed)
	}
	return nil
}
