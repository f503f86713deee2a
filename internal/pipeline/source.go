package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
)

// Fetcher retrieves one provider's current raw records.
type Fetcher[T domain.RawRecord] interface {
	Provider() domain.ProviderName
	Fetch(ctx context.Context) ([]T, error)
}

// Source is one provider's extract and normalize steps over its raw file.
type Source interface {
	Provider() domain.ProviderName
	// Extract fetches and appends new raw records. It returns the number
	// fetched and the number appended.
	Extract(ctx context.Context) (fetched, appended int, err error)
	// Normalize maps every stored raw record onto the shared schema.
	// It returns csvfile.ErrNoData when the raw file is missing or empty.
	Normalize() ([]domain.NormalizedOutage, error)
}

type providerSource[T domain.RawRecord] struct {
	fetcher Fetcher[T]
	rawPath string
}

// NewSource pairs a fetcher with the raw file its records accumulate in.
func NewSource[T domain.RawRecord](fetcher Fetcher[T], rawPath string) Source {
	return &providerSource[T]{fetcher: fetcher, rawPath: rawPath}
}

func (s *providerSource[T]) Provider() domain.ProviderName { return s.fetcher.Provider() }

func (s *providerSource[T]) Extract(ctx context.Context) (int, int, error) {
	recs, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return 0, 0, err
	}
	appended, err := csvfile.AppendNew(s.rawPath, recs)
	if err != nil {
		return len(recs), 0, fmt.Errorf("append raw records: %w", err)
	}
	return len(recs), appended, nil
}

func (s *providerSource[T]) Normalize() ([]domain.NormalizedOutage, error) {
	recs, err := csvfile.ReadRecords[T](s.rawPath)
	if err != nil {
		return nil, err
	}
	out := make([]domain.NormalizedOutage, 0, len(recs))
	for _, r := range recs {
		o := r.Normalize()
		if o.Validate() != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
