package config

import "time"

// IssueSourceConfig controls GitHub-backed resolution of an issue's problem
// statement / background text when supplied as a URL reference instead of
// inline content.
type IssueSourceConfig struct {
	// GitHubTokenEnv names the environment variable holding a GitHub token
	// for higher-rate-limit, private-repo fetches. Empty means unauthenticated.
	GitHubTokenEnv string `yaml:"github_token_env"`

	// CacheTTL is how long fetched content is cached before a re-fetch.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// AllowedDomains restricts which hosts issue-source URLs may reference.
	// Empty means no restriction.
	AllowedDomains []string `yaml:"allowed_domains"`
}

// DefaultIssueSourceConfig returns the built-in issue-source defaults.
func DefaultIssueSourceConfig() *IssueSourceConfig {
	return &IssueSourceConfig{
		CacheTTL:       1 * time.Minute,
		AllowedDomains: []string{"github.com", "raw.githubusercontent.com"},
	}
}
