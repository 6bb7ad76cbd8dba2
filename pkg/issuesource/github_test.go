package issuesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubClient_DownloadContent(t *testing.T) {
	t.Run("successful fetch returns body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("raw content"))
		}))
		defer server.Close()

		client := NewGitHubClient("")
		content, err := client.DownloadContent(context.Background(), server.URL+"/issue.md")
		require.NoError(t, err)
		assert.Equal(t, "raw content", content)
	})

	t.Run("sets bearer auth header when a token is configured", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := NewGitHubClient("my-token")
		_, err := client.DownloadContent(context.Background(), server.URL+"/issue.md")
		require.NoError(t, err)
		assert.Equal(t, "Bearer my-token", gotAuth)
	})

	t.Run("no auth header when token is empty", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := NewGitHubClient("")
		_, err := client.DownloadContent(context.Background(), server.URL+"/issue.md")
		require.NoError(t, err)
		assert.Empty(t, gotAuth)
	})

	t.Run("non-200 status returns an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewGitHubClient("")
		_, err := client.DownloadContent(context.Background(), server.URL+"/missing.md")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}
