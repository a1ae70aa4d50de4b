// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/retraction-meta/internal/httputil"
	"github.com/pdiddy/retraction-meta/pkg/types"
)

// citationsAPIBase is the OpenCitations index v2 citations endpoint.
// Declared as a var so tests can substitute an httptest server.
var citationsAPIBase = "https://opencitations.net/index/api/v2/citations/"

const defaultRateLimit = 2.0

// Client queries the OpenCitations index for the works citing a DOI.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        types.FetchConfig
}

// NewClient builds a rate-limited OpenCitations client. The limiter caps
// outgoing requests at cfg.RateLimit per second (default 2), independent of
// the batch throttling applied by the pipeline.
func NewClient(httpClient *http.Client, cfg types.FetchConfig) *Client {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		cfg:        cfg,
	}
}

// Citations fetches all citing events recorded for the given DOI. Rate-limit
// responses are retried with backoff; any other transport or API failure is
// returned as an error with no entries, and the caller decides whether that
// aborts anything. An empty index entry yields an empty slice and no error.
func (c *Client) Citations(ctx context.Context, doi string) ([]types.CitationEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := citationsAPIBase + "doi:" + doi
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.AccessToken != "" {
		req.Header.Set("authorization", c.cfg.AccessToken)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("OpenCitations API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenCitations API returned HTTP %d", resp.StatusCode)
	}

	var entries []types.CitationEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parsing OpenCitations response: %w", err)
	}
	return entries, nil
}
