package issuesource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToRawURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "github blob URL converts to raw",
			input:    "https://github.com/acme/repo/blob/main/docs/issue.md",
			expected: "https://raw.githubusercontent.com/acme/repo/refs/heads/main/docs/issue.md",
		},
		{
			name:     "github tree URL converts to raw",
			input:    "https://github.com/acme/repo/tree/main/docs",
			expected: "https://raw.githubusercontent.com/acme/repo/refs/heads/main/docs",
		},
		{
			name:     "already-raw URL is unchanged",
			input:    "https://raw.githubusercontent.com/acme/repo/main/docs/issue.md",
			expected: "https://raw.githubusercontent.com/acme/repo/main/docs/issue.md",
		},
		{
			name:     "non-GitHub URL is unchanged",
			input:    "https://example.com/issue.md",
			expected: "https://example.com/issue.md",
		},
		{
			name:     "malformed URL is returned unchanged",
			input:    "://not a url",
			expected: "://not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConvertToRawURL(tt.input))
		})
	}
}

func TestParseRepoURL(t *testing.T) {
	t.Run("parses a well-formed blob URL", func(t *testing.T) {
		parts, err := ParseRepoURL("https://github.com/acme/repo/blob/main/docs/issue.md")
		require.NoError(t, err)
		assert.Equal(t, "acme", parts.Owner)
		assert.Equal(t, "repo", parts.Repo)
		assert.Equal(t, "main", parts.Ref)
		assert.Equal(t, "docs/issue.md", parts.Path)
	})

	t.Run("rejects a non-GitHub host", func(t *testing.T) {
		_, err := ParseRepoURL("https://gitlab.com/acme/repo/blob/main/issue.md")
		assert.Error(t, err)
	})

	t.Run("rejects a GitHub URL that isn't a blob/tree path", func(t *testing.T) {
		_, err := ParseRepoURL("https://github.com/acme/repo")
		assert.Error(t, err)
	})
}

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name           string
		rawURL         string
		allowedDomains []string
		wantErr        bool
	}{
		{
			name:           "allowed domain passes",
			rawURL:         "https://github.com/acme/repo/blob/main/issue.md",
			allowedDomains: []string{"github.com"},
			wantErr:        false,
		},
		{
			name:           "www prefix on an allowed domain passes",
			rawURL:         "https://www.github.com/acme/repo/blob/main/issue.md",
			allowedDomains: []string{"github.com"},
			wantErr:        false,
		},
		{
			name:           "domain not in allow-list is rejected",
			rawURL:         "https://evil.example.com/payload",
			allowedDomains: []string{"github.com"},
			wantErr:        true,
		},
		{
			name:           "empty allow-list permits any domain",
			rawURL:         "https://anything.example.com/file.md",
			allowedDomains: nil,
			wantErr:        false,
		},
		{
			name:           "non-http(s) scheme is rejected",
			rawURL:         "ftp://github.com/acme/repo",
			allowedDomains: nil,
			wantErr:        true,
		},
		{
			name:           "malformed URL is rejected",
			rawURL:         "://bad",
			allowedDomains: nil,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceURL(tt.rawURL, tt.allowedDomains)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
