package issuesource

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/roundtable/pkg/config"
)

// Service resolves an issue's problem statement and background text, either
// taken inline from the run request or fetched (and cached) from a GitHub
// URL reference.
type Service struct {
	github *GitHubClient
	cache  *Cache
	cfg    *config.IssueSourceConfig
}

// NewService creates a new Service. githubToken is the resolved token value
// (empty string = no auth, public repos only).
func NewService(cfg *config.IssueSourceConfig, githubToken string) *Service {
	cacheTTL := 1 * time.Minute
	if cfg != nil && cfg.CacheTTL > 0 {
		cacheTTL = cfg.CacheTTL
	}

	return &Service{
		github: NewGitHubClient(githubToken),
		cache:  NewCache(cacheTTL),
		cfg:    cfg,
	}
}

// Resolve returns text content for one of an issue's free-text fields
// (problem statement or background). If ref looks like an http(s) URL it is
// fetched (with caching); otherwise ref is returned unchanged as inline
// content.
func (s *Service) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if !looksLikeURL(ref) {
		return ref, nil
	}

	var allowedDomains []string
	if s.cfg != nil {
		allowedDomains = s.cfg.AllowedDomains
	}
	if err := ValidateSourceURL(ref, allowedDomains); err != nil {
		return "", err
	}

	normalized := ConvertToRawURL(ref)
	if content, ok := s.cache.Get(normalized); ok {
		return content, nil
	}

	content, err := s.github.DownloadContent(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("fetch issue source %s: %w", ref, err)
	}

	s.cache.Set(normalized, content)
	return content, nil
}

func looksLikeURL(ref string) bool {
	return len(ref) > 7 && (ref[:7] == "http://" || (len(ref) > 8 && ref[:8] == "https://"))
}
