package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/jszwec/csvutil"
)

// CleanRow is one line of the clean dataset exactly as stored.
type CleanRow struct {
	ReferenceID  string `csv:"reference_id"`
	OutageStart  string `csv:"outage_start"`
	OutageEnd    string `csv:"outage_end"`
	ProviderName string `csv:"Provider_name"`
	Planned      string `csv:"planned"`
}

// CleanHeader returns the fixed header of the clean dataset.
func CleanHeader() []string {
	h, err := csvutil.Header(CleanRow{}, "csv")
	if err != nil {
		panic(err) // CleanRow tags are static
	}
	return h
}

func toCleanRow(o domain.NormalizedOutage) CleanRow {
	return CleanRow{
		ReferenceID:  strings.TrimSpace(o.ReferenceID),
		OutageStart:  domain.FormatTimestamp(o.OutageStart),
		OutageEnd:    domain.FormatTimestamp(o.OutageEnd),
		ProviderName: string(o.ProviderName),
		Planned:      o.Planned.String(),
	}
}

// Outage converts the stored row back to the shared schema.
func (r CleanRow) Outage() domain.NormalizedOutage {
	return domain.NormalizedOutage{
		ReferenceID:  strings.TrimSpace(r.ReferenceID),
		OutageStart:  domain.ParseCleanTimestamp(r.OutageStart),
		OutageEnd:    domain.ParseCleanTimestamp(r.OutageEnd),
		ProviderName: domain.ProviderName(strings.TrimSpace(r.ProviderName)),
		Planned:      domain.ParsePlanned(r.Planned),
	}
}

// CleanDataset is the accumulated, append-only normalized outage file.
type CleanDataset struct {
	path string
}

// NewCleanDataset returns a dataset backed by the file at path.
func NewCleanDataset(path string) *CleanDataset {
	return &CleanDataset{path: path}
}

// Path returns the backing file path.
func (d *CleanDataset) Path() string { return d.path }

// EnsureExists creates the file with the fixed header when it is absent or
// empty. An existing non-empty file is left untouched.
func (d *CleanDataset) EnsureExists() error {
	info, err := os.Stat(d.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", d.path, err)
	}

	if dir := filepath.Dir(d.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", d.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CleanHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Header returns the header line of the file as stored.
func (d *CleanDataset) Header() ([]string, error) {
	return readHeader(d.path)
}

// Rows returns every stored row. ErrNoData means the dataset has no rows yet.
func (d *CleanDataset) Rows() ([]CleanRow, error) {
	return ReadRecords[CleanRow](d.path)
}

// ReadAll returns every stored outage in file order.
func (d *CleanDataset) ReadAll() ([]domain.NormalizedOutage, error) {
	rows, err := d.Rows()
	if err != nil {
		return nil, err
	}
	out := make([]domain.NormalizedOutage, len(rows))
	for i, r := range rows {
		out[i] = r.Outage()
	}
	return out, nil
}

// Keys returns the reference ids already in the dataset.
func (d *CleanDataset) Keys() (map[string]struct{}, error) {
	rows, err := d.Rows()
	if errors.Is(err, ErrNoData) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		keys[strings.TrimSpace(r.ReferenceID)] = struct{}{}
	}
	return keys, nil
}

// Append writes the outages whose reference id is not already stored and
// not repeated earlier in the batch. Outages that fail validation are
// skipped. It returns the number of rows written.
func (d *CleanDataset) Append(outages []domain.NormalizedOutage) (int, error) {
	if err := d.EnsureExists(); err != nil {
		return 0, err
	}
	seen, err := d.Keys()
	if err != nil {
		return 0, err
	}

	rows := make([]CleanRow, 0, len(outages))
	for _, o := range outages {
		if o.Validate() != nil {
			continue
		}
		row := toCleanRow(o)
		if _, dup := seen[row.ReferenceID]; dup {
			continue
		}
		seen[row.ReferenceID] = struct{}{}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := appendRows(d.path, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
