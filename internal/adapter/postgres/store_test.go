package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestStore_ProviderID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectProviderID)).
		WithArgs("National Grid").
		WillReturnRows(pgxmock.NewRows([]string{"provider_id"}).AddRow(int64(2)))

	id, found, err := store.ProviderID(context.Background(), domain.ProviderNationalGrid)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ProviderID_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectProviderID)).
		WithArgs("Acme Power").
		WillReturnRows(pgxmock.NewRows([]string{"provider_id"}))

	_, found, err := store.ProviderID(context.Background(), "Acme Power")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_OutageExists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectOutageExists)).
		WithArgs("REF123").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.OutageExists(context.Background(), "REF123")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertOutage_NullPlaceholders(t *testing.T) {
	store, mock := newMockStore(t)
	start := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	o := domain.StoredOutage{ReferenceID: "REF123", OutageStart: &start, Planned: domain.PlannedUnknown}

	mock.ExpectQuery(regexp.QuoteMeta(insertOutage)).
		WithArgs("REF123", &start, (*time.Time)(nil), (*int64)(nil), (*bool)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"outage_id"}).AddRow(int64(77)))

	id, err := store.InsertOutage(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertOutageIfAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	providerID := int64(3)
	planned := true
	o := domain.StoredOutage{ReferenceID: "NG1", ProviderID: &providerID, Planned: domain.PlannedTrue}

	mock.ExpectQuery(regexp.QuoteMeta(insertOutageIfAbsent)).
		WithArgs("NG1", (*time.Time)(nil), (*time.Time)(nil), &providerID, &planned).
		WillReturnRows(pgxmock.NewRows([]string{"outage_id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(insertOutageIfAbsent)).
		WithArgs("NG1", (*time.Time)(nil), (*time.Time)(nil), &providerID, &planned).
		WillReturnRows(pgxmock.NewRows([]string{"outage_id"}))

	id, inserted, err := store.InsertOutageIfAbsent(context.Background(), o)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(1), id)

	_, inserted, err = store.InsertOutageIfAbsent(context.Background(), o)
	require.NoError(t, err)
	assert.False(t, inserted, "conflicting reference id must not insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertOutageIfAbsent_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertOutageIfAbsent)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("deadlock detected"))

	_, _, err := store.InsertOutageIfAbsent(context.Background(), domain.StoredOutage{ReferenceID: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert outage X")
}

func TestStore_FillMissingEnd(t *testing.T) {
	store, mock := newMockStore(t)
	end := time.Date(2023, 1, 1, 14, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(fillMissingEnd)).
		WithArgs("REF123", end).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	changed, err := store.FillMissingEnd(context.Background(), "REF123", end)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SeedProviders(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(insertProvider)).
		WithArgs("National Grid").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertProvider)).
		WithArgs("Scottish and Southern Energy (SSE)").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	added, err := store.SeedProviders(context.Background(),
		[]domain.ProviderName{domain.ProviderNationalGrid, domain.ProviderSSEN})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS providers").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS outages").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE UNIQUE INDEX IF NOT EXISTS outages_reference_id_key").WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))

	require.NoError(t, EnsureSchema(context.Background(), mock, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_WithoutUniqueReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS providers").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS outages").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	// Any further Exec, such as the index DDL, is unexpected and fails.
	require.NoError(t, EnsureSchema(context.Background(), mock, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_IndexFailureOnDuplicates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS providers").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS outages").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE UNIQUE INDEX IF NOT EXISTS outages_reference_id_key").
		WillReturnError(errors.New(`could not create unique index "outages_reference_id_key"`))

	err = EnsureSchema(context.Background(), mock, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference_id index")
	assert.NoError(t, mock.ExpectationsWereMet())
}
