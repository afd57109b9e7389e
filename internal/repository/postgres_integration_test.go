//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"

	"places-api/internal/apperr"
	"places-api/internal/database"
	"places-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	// Start PostgreSQL container with PostGIS
	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		postgresC.Terminate(ctx)
	})

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)

	port, err := postgresC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := "postgres://testuser:testpass@" + host + ":" + port.Port() + "/testdb?sslmode=disable"

	require.NoError(t, database.Migrate(connString))

	pool, err := database.NewPool(ctx, connString, 4)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	t.Run("nearest on empty table", func(t *testing.T) {
		place, err := repo.Nearest(ctx, models.NewPoint(5, 5))
		require.NoError(t, err)
		assert.Nil(t, place)
	})

	place1, err := repo.Create(ctx, "Place 1", "Description 1", models.NewPoint(10, 10))
	require.NoError(t, err)
	place2, err := repo.Create(ctx, "Place 2", "Description 2", models.NewPoint(20, 20))
	require.NoError(t, err)

	t.Run("create then get", func(t *testing.T) {
		got, err := repo.Get(ctx, place1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Place{ID: place1.ID, Name: "Place 1", Description: "Description 1", Geom: models.NewPoint(10, 10)}, *got)
	})

	t.Run("nearest", func(t *testing.T) {
		got, err := repo.Nearest(ctx, models.NewPoint(5, 5))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, place1.ID, got.ID)
	})

	t.Run("transform from web mercator", func(t *testing.T) {
		// Roughly (20, 20) in EPSG:3857.
		got, err := repo.Nearest(ctx, models.Point{X: 2226389.8, Y: 2273030.9, SRID: 3857})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, place2.ID, got.ID)
	})

	t.Run("unknown srid", func(t *testing.T) {
		_, err := repo.Create(ctx, "x", "", models.Point{X: 1, Y: 1, SRID: 999999})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("patch description only", func(t *testing.T) {
		desc := "Patched"
		got, err := repo.Patch(ctx, place2.ID, models.PlacePatch{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "Place 2", got.Name)
		assert.Equal(t, "Patched", got.Description)
		assert.Equal(t, models.NewPoint(20, 20), got.Geom)
	})

	t.Run("patch geometry", func(t *testing.T) {
		geom := models.NewPoint(21, 22)
		got, err := repo.Patch(ctx, place2.ID, models.PlacePatch{Geom: &geom})
		require.NoError(t, err)
		assert.Equal(t, geom, got.Geom)
	})

	t.Run("update", func(t *testing.T) {
		got, err := repo.Update(ctx, place1.ID, "Updated Place", "An updated place", models.NewPoint(25, 25))
		require.NoError(t, err)
		assert.Equal(t, models.Place{ID: place1.ID, Name: "Updated Place", Description: "An updated place", Geom: models.NewPoint(25, 25)}, *got)
	})

	t.Run("create many and list", func(t *testing.T) {
		batch := make([]models.Place, 10)
		for i := range batch {
			batch[i] = models.Place{Name: fmt.Sprintf("Bulk %d", i), Geom: models.NewPoint(float64(i), 0)}
		}
		n, err := repo.CreateMany(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		places, total, err := repo.List(ctx, 5, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		assert.Len(t, places, 5)
		assert.Equal(t, place1.ID, places[0].ID)

		places, _, err = repo.List(ctx, 1000, 2000)
		require.NoError(t, err)
		assert.Empty(t, places)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, place1.ID))

		_, err := repo.Get(ctx, place1.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, place1.ID), apperr.ErrNotFound)

		_, err = repo.Update(ctx, place1.ID, "a", "b", models.NewPoint(0, 0))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
