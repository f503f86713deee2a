package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/jackc/pgx/v5"
)

const (
	selectProviderID = `SELECT provider_id FROM providers WHERE provider_name = $1`

	selectOutageExists = `SELECT EXISTS(SELECT 1 FROM outages WHERE reference_id = $1)`

	insertOutage = `INSERT INTO outages (reference_id, outage_start, outage_end, provider_id, planned)
VALUES ($1, $2, $3, $4, $5)
RETURNING outage_id`

	insertOutageIfAbsent = `INSERT INTO outages (reference_id, outage_start, outage_end, provider_id, planned)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (reference_id) DO NOTHING
RETURNING outage_id`

	fillMissingEnd = `UPDATE outages SET outage_end = $2
WHERE reference_id = $1 AND outage_end IS NULL`

	insertProvider = `INSERT INTO providers (provider_name) VALUES ($1)
ON CONFLICT (provider_name) DO NOTHING`
)

// Store reads providers and writes outages. Every method runs a single
// autocommitted statement.
type Store struct {
	db     DB
	logger *slog.Logger
}

func NewStore(db DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// ProviderID looks up a provider by name. found is false when no row matches.
func (s *Store) ProviderID(ctx context.Context, name domain.ProviderName) (id int64, found bool, err error) {
	err = s.db.QueryRow(ctx, selectProviderID, string(name)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select provider %q: %w", name, err)
	}
	return id, true, nil
}

// OutageExists reports whether an outage with the reference id is stored.
func (s *Store) OutageExists(ctx context.Context, referenceID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, selectOutageExists, referenceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check outage %s: %w", referenceID, err)
	}
	return exists, nil
}

// InsertOutage inserts o unconditionally and returns the new outage_id.
func (s *Store) InsertOutage(ctx context.Context, o domain.StoredOutage) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, insertOutage, outageArgs(o)...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert outage %s: %w", o.ReferenceID, err)
	}
	return id, nil
}

// InsertOutageIfAbsent inserts o unless an outage with the same reference
// id exists. It relies on the unique index on reference_id.
func (s *Store) InsertOutageIfAbsent(ctx context.Context, o domain.StoredOutage) (id int64, inserted bool, err error) {
	err = s.db.QueryRow(ctx, insertOutageIfAbsent, outageArgs(o)...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("upsert outage %s: %w", o.ReferenceID, err)
	}
	return id, true, nil
}

// FillMissingEnd sets outage_end on a stored outage whose end is still NULL.
// It reports whether a row changed.
func (s *Store) FillMissingEnd(ctx context.Context, referenceID string, end time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, fillMissingEnd, referenceID, end)
	if err != nil {
		return false, fmt.Errorf("fill outage end %s: %w", referenceID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SeedProviders inserts the named providers that are not yet present and
// returns how many were added.
func (s *Store) SeedProviders(ctx context.Context, names []domain.ProviderName) (int, error) {
	added := 0
	for _, name := range names {
		tag, err := s.db.Exec(ctx, insertProvider, string(name))
		if err != nil {
			return added, fmt.Errorf("seed provider %q: %w", name, err)
		}
		if tag.RowsAffected() > 0 {
			s.logger.Info("provider seeded", "provider", name)
			added++
		}
	}
	return added, nil
}

func outageArgs(o domain.StoredOutage) []any {
	return []any{o.ReferenceID, o.OutageStart, o.OutageEnd, o.ProviderID, plannedArg(o.Planned)}
}

// plannedArg maps the tri-state flag onto a nullable boolean.
func plannedArg(p domain.Planned) *bool {
	v, ok := p.Bool()
	if !ok {
		return nil
	}
	return &v
}
