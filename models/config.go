package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// IndicatorConfig carries the keyword lists that drive textbook
// classification. The lists are data, not code: classification precedence
// is fixed, the vocabulary is configurable.
type IndicatorConfig struct {
	StrongIndicators      []string `yaml:"strong_indicators"`
	SubjectIndicators     []string `yaml:"subject_indicators"`
	EducationalIndicators []string `yaml:"educational_indicators"`
	ExcludeIndicators     []string `yaml:"exclude_indicators"`
	TrustedOrganizations  []string `yaml:"trusted_organizations"`
	MinSizeKB             int      `yaml:"min_size_kb"`
	PreferNonForks        bool     `yaml:"prefer_non_forks"`
}

// WorkerConfig holds the independently tunable pool sizes.
type WorkerConfig struct {
	Discovery  int `yaml:"discovery"`
	Clone      int `yaml:"clone"`
	Processing int `yaml:"processing"`
	IO         int `yaml:"io"`
}

// Config is the runtime configuration for the whole pipeline, loaded from
// a single YAML document.
type Config struct {
	BooksPath      string `yaml:"books_path"`
	MetadataPath   string `yaml:"metadata_path"`
	SearchIndexDir string `yaml:"search_index_dir"`

	GitHubAPIBaseURL string `yaml:"github_api_base_url"`
	OpenStaxBaseURL  string `yaml:"openstax_base_url"`
	UserAgent        string `yaml:"user_agent"`

	RequestDelaySeconds float64 `yaml:"request_delay_seconds"`
	MaxRetries          int     `yaml:"max_retries"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`

	Workers            WorkerConfig `yaml:"workers"`
	TaskTimeoutSeconds int          `yaml:"task_timeout_seconds"`

	CloneDepth    int  `yaml:"clone_depth"`
	GitLFSEnabled bool `yaml:"git_lfs_enabled"`

	Indicators IndicatorConfig `yaml:"indicators"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		BooksPath:           "Books",
		MetadataPath:        "metadata",
		SearchIndexDir:      "metadata/search_index",
		GitHubAPIBaseURL:    "https://api.github.com",
		OpenStaxBaseURL:     "https://openstax.org",
		UserAgent:           "OpenBooks/1.0 (Educational Research)",
		RequestDelaySeconds: 2.0,
		MaxRetries:          3,
		TimeoutSeconds:      30,
		Workers: WorkerConfig{
			Discovery:  8,
			Clone:      6,
			Processing: 12,
			IO:         8,
		},
		TaskTimeoutSeconds: 300,
		CloneDepth:         0,
		GitLFSEnabled:      true,
		Indicators: IndicatorConfig{
			StrongIndicators: []string{
				"osbooks-", "cnxbook-", "derived-from-osbooks-", "textbook", "open-textbook",
			},
			SubjectIndicators: []string{
				"physics", "biology", "chemistry", "mathematics", "math", "calculus",
				"algebra", "statistics", "economics", "psychology", "sociology",
				"business", "anatomy", "physiology", "microbiology", "astronomy",
				"philosophy", "history", "anthropology", "government", "finance",
				"accounting", "marketing",
			},
			EducationalIndicators: []string{
				"course", "curriculum", "education", "learning", "university",
				"college", "introduction", "principles", "openstax", "oer",
			},
			ExcludeIndicators: []string{
				"cms", "devops", "pipeline", "template", "infrastructure",
				"deployment", "tooling", "utilities", "dashboard", "backend",
				"frontend", "salesforce", "automation",
			},
			TrustedOrganizations: []string{"openstax", "cnx-user-books"},
			MinSizeKB:            50,
			PreferNonForks:       true,
		},
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
// A missing file returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// RequestDelay returns the inter-request delay as a duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TaskTimeout returns the per-task wall-clock timeout for the scheduler.
func (c *Config) TaskTimeout() time.Duration {
	if c.TaskTimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}
