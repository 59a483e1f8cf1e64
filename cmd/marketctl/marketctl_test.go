package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/auth"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/store"
	"github.com/Moichehub/marketplace/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:14-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := sql.Open("postgres", fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(ctx, db, migrations.FS, database.Up)
	require.NoError(t, err)
	return db
}

func TestSeedAndSampleReviews(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := auth.NewHasher(bcrypt.MinCost)

	require.NoError(t, seed(ctx, db, hasher, logger))
	require.NoError(t, seed(ctx, db, hasher, logger))

	listings, err := store.ListAllProducts(ctx, db)
	require.NoError(t, err)
	assert.Len(t, listings, 25, "a second seed must not duplicate products")

	rng := rand.New(rand.NewPCG(1, 2))

	_, err = sampleReviews(ctx, db, 3, rng, logger)
	assert.Error(t, err, "no customers yet")

	for _, name := range []string{"olena", "taras", "iryna", "mykola"} {
		_, err := store.CreateUser(ctx, db, hasher, store.NewUser{Username: name, Password: "pass123"})
		require.NoError(t, err)
	}

	_, err = sampleReviews(ctx, db, 0, rng, logger)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	created, err := sampleReviews(ctx, db, 3, rng, logger)
	require.NoError(t, err)
	assert.Equal(t, 25*3, created)

	created, err = sampleReviews(ctx, db, 3, rng, logger)
	require.NoError(t, err)
	assert.Zero(t, created, "existing reviews are kept")

	for _, l := range listings {
		avg, err := store.AverageRating(ctx, db, l.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, avg, 3.0)
		assert.LessOrEqual(t, avg, 5.0)

		count, err := store.ReviewCount(ctx, db, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	}
}
