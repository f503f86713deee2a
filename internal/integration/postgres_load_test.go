//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/postgres"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/couchcryptid/power-outage-etl/internal/observability"
	"github.com/couchcryptid/power-outage-etl/internal/pipeline"
)

func testOutages() []domain.NormalizedOutage {
	start := time.Date(2023, time.October, 1, 8, 15, 0, 0, time.UTC)
	return []domain.NormalizedOutage{
		{ReferenceID: "REF123", OutageStart: &start, ProviderName: domain.ProviderElectricityNorthWest},
		{ReferenceID: "S1", ProviderName: domain.ProviderSSEN, Planned: domain.PlannedFalse},
		{ReferenceID: "X1", ProviderName: "Imaginary Networks", Planned: domain.PlannedTrue},
	}
}

func TestPostgresLoader_InsertIfAbsent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool := startPostgres(ctx, t, true)
	store := postgres.NewStore(pool, discardLogger())
	added, err := store.SeedProviders(ctx, domain.Providers())
	require.NoError(t, err)
	assert.Equal(t, len(domain.Providers()), added)

	metrics := observability.NewMetricsForTesting()
	lookup := postgres.NewCachedProviders(store, 16, metrics)
	loader := pipeline.NewLoader(lookup, store, pipeline.LoaderOptions{}, discardLogger(), metrics)

	res, err := loader.Load(ctx, testOutages())
	require.NoError(t, err)
	assert.Equal(t, pipeline.LoadResult{Inserted: 3, UnknownProvider: 1}, res)

	res, err = loader.Load(ctx, testOutages())
	require.NoError(t, err)
	assert.Equal(t, pipeline.LoadResult{Duplicates: 3, UnknownProvider: 1}, res)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outages`).Scan(&count))
	assert.Equal(t, 3, count)

	var (
		providerName *string
		planned      *bool
		outageStart  *time.Time
	)
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT p.provider_name, o.planned, o.outage_start
		FROM outages o LEFT JOIN providers p ON p.provider_id = o.provider_id
		WHERE o.reference_id = 'REF123'`).Scan(&providerName, &planned, &outageStart))
	require.NotNil(t, providerName)
	assert.Equal(t, string(domain.ProviderElectricityNorthWest), *providerName)
	assert.Nil(t, planned)
	require.NotNil(t, outageStart)
	assert.True(t, outageStart.Equal(time.Date(2023, time.October, 1, 8, 15, 0, 0, time.UTC)))

	var unknownProvider *int64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT provider_id FROM outages WHERE reference_id = 'X1'`).Scan(&unknownProvider))
	assert.Nil(t, unknownProvider)
}

func TestPostgresLoader_CheckThenInsertAndFillEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool := startPostgres(ctx, t, false)
	store := postgres.NewStore(pool, discardLogger())
	_, err := store.SeedProviders(ctx, domain.Providers())
	require.NoError(t, err)

	// A legacy table may already hold duplicate ids.
	_, err = pool.Exec(ctx, `INSERT INTO outages (reference_id) VALUES ('LEGACY'), ('LEGACY')`)
	require.NoError(t, err)
	require.NoError(t, postgres.EnsureSchema(ctx, pool, false))

	metrics := observability.NewMetricsForTesting()
	opts := pipeline.LoaderOptions{
		CheckFirst: true,
		Reconciler: pipeline.NewFillEndReconciler(store),
	}
	loader := pipeline.NewLoader(store, store, opts, discardLogger(), metrics)

	rows := testOutages()
	_, err = loader.Load(ctx, rows)
	require.NoError(t, err)

	end := time.Date(2023, time.October, 1, 14, 0, 0, 0, time.UTC)
	rows[0].OutageEnd = &end
	res, err := loader.Load(ctx, rows[:1])
	require.NoError(t, err)
	assert.Equal(t, pipeline.LoadResult{Duplicates: 1, Reconciled: 1}, res)

	var stored *time.Time
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT outage_end FROM outages WHERE reference_id = 'REF123'`).Scan(&stored))
	require.NotNil(t, stored)
	assert.True(t, stored.Equal(end))
}
