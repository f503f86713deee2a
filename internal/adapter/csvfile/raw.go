// Package csvfile persists the raw and clean outage layers as CSV files.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/jszwec/csvutil"
)

// ErrNoData is returned when a file is missing or holds no rows.
var ErrNoData = errors.New("csvfile: no data")

// ErrHeaderMismatch is returned when an existing file lacks a column the
// appended rows need.
var ErrHeaderMismatch = errors.New("csvfile: stored header does not match")

// ReadRecords decodes every row of the CSV file at path into T using its csv
// tags. Unknown columns are ignored and rows with the wrong number of fields
// are logged and skipped. A missing file, an empty file and a header-only
// file all return ErrNoData.
func ReadRecords[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(r)
	if errors.Is(err, io.EOF) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var out []T
	for {
		var rec T
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csvutil.ErrFieldCount) {
			line, _ := r.FieldPos(0)
			slog.Warn("skipping csv row with wrong field count",
				"path", path, "line", line, "fields", len(dec.Record()), "want", len(dec.Header()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// Keys returns the set of record keys already stored at path. A missing or
// empty file yields an empty set.
func Keys[T domain.RawRecord](path string) (map[string]struct{}, error) {
	recs, err := ReadRecords[T](path)
	if errors.Is(err, ErrNoData) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		keys[r.Key()] = struct{}{}
	}
	return keys, nil
}

// AppendNew appends the records whose key is neither blank, already in the
// file, nor repeated earlier in records. It returns the number written.
func AppendNew[T domain.RawRecord](path string, records []T) (int, error) {
	seen, err := Keys[T](path)
	if err != nil {
		return 0, err
	}

	fresh := make([]T, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := appendRows(path, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// appendRows encodes rows onto the end of path, writing the header first
// when the file is new or empty. Rows appended to an existing file follow the
// column order of its stored header.
func appendRows[T any](path string, rows []T) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	var stored []string
	if info.Size() > 0 {
		stored, err = readHeader(path)
		if err != nil && !errors.Is(err, ErrNoData) {
			return err
		}
		if err := ensureTrailingNewline(f, path, info.Size()); err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	if err := encodeRows(w, rows, stored); err != nil {
		return fmt.Errorf("encode rows for %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// encodeRows writes rows with a header when stored is nil, or laid out in the
// order of the stored header otherwise. Stored columns T does not know are
// left blank.
func encodeRows[T any](w *csv.Writer, rows []T, stored []string) error {
	if stored == nil {
		enc := csvutil.NewEncoder(w)
		for i := range rows {
			if err := enc.Encode(rows[i]); err != nil {
				return err
			}
		}
		return nil
	}

	var zero T
	header, err := csvutil.Header(zero, "csv")
	if err != nil {
		return err
	}
	order, err := columnOrder(header, stored)
	if err != nil {
		return err
	}

	var buf recordBuffer
	enc := csvutil.NewEncoder(&buf)
	enc.AutoHeader = false
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return err
		}
		out := make([]string, len(stored))
		for j, src := range order {
			if src >= 0 {
				out[j] = buf.record[src]
			}
		}
		if err := w.Write(out); err != nil {
			return err
		}
	}
	return nil
}

// columnOrder maps each stored column to its index in header, or -1.
func columnOrder(header, stored []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	order := make([]int, len(stored))
	seen := make(map[int]struct{}, len(header))
	for j, col := range stored {
		i, ok := index[strings.TrimSpace(col)]
		if !ok {
			order[j] = -1
			continue
		}
		order[j] = i
		seen[i] = struct{}{}
	}
	if len(seen) != len(header) {
		return nil, fmt.Errorf("%w: have %v, want %v", ErrHeaderMismatch, stored, header)
	}
	return order, nil
}

// recordBuffer keeps the last record an encoder wrote.
type recordBuffer struct {
	record []string
}

func (b *recordBuffer) Write(record []string) error {
	b.record = append(b.record[:0], record...)
	return nil
}

// readHeader returns the first line of the file at path.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return h, nil
}

// ensureTrailingNewline terminates a last line left unterminated by a
// foreign writer so appended rows start on their own line.
func ensureTrailingNewline(f *os.File, path string, size int64) error {
	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	last := make([]byte, 1)
	if _, err := r.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RawPath returns the raw-layer file for a provider inside dir,
// e.g. "data/uk_power_networks_raw.csv".
func RawPath(dir string, provider domain.ProviderName) string {
	return filepath.Join(dir, slug(provider)+"_raw.csv")
}

func slug(p domain.ProviderName) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(string(p)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
