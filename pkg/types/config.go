package types

import "time"

// HTTPConfig holds shared HTTP settings for stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "retraction-meta/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ReaderConfig holds settings for reading the input dataset.
type ReaderConfig struct {
	// Delimiter separates fields in the input file (default ",").
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// SampleBytes is how much of the file prefix is fed to the charset
	// detector (default 10000).
	SampleBytes int `json:"sample_bytes" yaml:"sample_bytes"`
}

// FetchConfig holds settings for the citation-fetching stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// AccessToken is an optional OpenCitations access token sent in the
	// authorization header for higher rate limits.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`

	// MaxRetries is the number of retry attempts on HTTP 429 (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RateLimit caps outgoing requests per second (default 2).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// ProgressEvery controls how often a progress line is logged, in
	// records (default 50).
	ProgressEvery int `json:"progress_every" yaml:"progress_every"`

	// SleepEvery controls how often the fetch loop pauses, in records
	// (default 50).
	SleepEvery int `json:"sleep_every" yaml:"sleep_every"`

	// MaxSleep bounds the randomized pause taken every SleepEvery records
	// (default 1s).
	MaxSleep time.Duration `json:"max_sleep" yaml:"max_sleep"`
}

// PipelineConfig groups all settings for one pipeline run.
type PipelineConfig struct {
	// InputPath is the retraction dataset to read.
	InputPath string `json:"input" yaml:"input"`

	// OutputPath is the JSON-lines file to write.
	OutputPath string `json:"output" yaml:"output"`

	// ReportPath, when set, receives a YAML run summary.
	ReportPath string `json:"report,omitempty" yaml:"report,omitempty"`

	// CacheDB, when set, is a SQLite file caching fetched citation lists
	// so repeated runs skip DOIs already fetched.
	CacheDB string `json:"cache_db,omitempty" yaml:"cache_db,omitempty"`

	// CountEqualAsAfter counts a citation dated exactly on the retraction
	// date as "after". The default strict policy counts it in neither bucket.
	CountEqualAsAfter bool `json:"count_equal_as_after" yaml:"count_equal_as_after"`

	Reader ReaderConfig `json:"reader" yaml:"reader"`
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
}
