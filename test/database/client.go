// Package database provides a disposable PostgreSQL instance for
// integration tests, grounded on the teacher's test/database/client.go
// testcontainers-vs-CI-service pattern, adapted to run the roundtable
// schema's golang-migrate migrations instead of ent's auto-schema-create.
package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/codeready-toolchain/roundtable/pkg/database"
)

// NewTestClient returns a *database.Client backed by a disposable Postgres
// instance: an external CI service reached via DB_HOST when CI_DATABASE_URL
// is set, or a freshly spun-up testcontainer otherwise (local dev). The
// container and client are torn down via t.Cleanup.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	client, _ := NewTestClientWithDSN(t)
	return client
}

// NewTestClientWithDSN is NewTestClient plus the libpq-style connection
// string for the same instance, for tests that need a second, independent
// connection (e.g. rtevents.Listener's dedicated LISTEN connection).
func NewTestClientWithDSN(t *testing.T) (*database.Client, string) {
	t.Helper()
	ctx := context.Background()

	cfg := database.Config{
		User:            "roundtable",
		Password:        "roundtable",
		Database:        "roundtable_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}

	if os.Getenv("CI_DATABASE_URL") != "" {
		t.Log("using external PostgreSQL service from DB_HOST")
		cfg.Host = os.Getenv("DB_HOST")
		cfg.Port = 5432
	} else {
		t.Log("using testcontainers for PostgreSQL")
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase(cfg.Database),
			postgres.WithUsername(cfg.User),
			postgres.WithPassword(cfg.Password),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		host, err := pgContainer.Host(ctx)
		require.NoError(t, err)
		mappedPort, err := pgContainer.MappedPort(ctx, "5432/tcp")
		require.NoError(t, err)
		cfg.Host = host
		cfg.Port = mappedPort.Int()
	}

	client, err := database.NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	return client, dsn
}
