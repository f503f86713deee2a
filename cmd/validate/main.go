// Command validate checks the integrity of the clean outage dataset and the
// raw provider files it was built from. It verifies the header, reference
// ids, timestamp and flag formats, provider names and that every raw record
// reached the clean dataset.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data -clean data/clean_power_outage_data.csv
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing the raw provider files")
	cleanPath := flag.String("clean", "data/clean_power_outage_data.csv", "path to the clean dataset")
	flag.Parse()

	os.Exit(run(*dataDir, *cleanPath))
}

func run(dataDir, cleanPath string) int {
	fmt.Println("=== Power Outage Data Integrity Validation ===")
	fmt.Println()

	clean := csvfile.NewCleanDataset(cleanPath)
	rows, err := clean.Rows()
	if err != nil && !errors.Is(err, csvfile.ErrNoData) {
		fmt.Fprintf(os.Stderr, "FATAL: load clean dataset: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHeader(clean),
		validateCleanRows(rows),
		validateRawCoverage(dataDir, cleanKeys(rows)),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d clean rows\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func cleanKeys(rows []csvfile.CleanRow) map[string]struct{} {
	keys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		keys[strings.TrimSpace(r.ReferenceID)] = struct{}{}
	}
	return keys
}

// ── Phases ──

func validateHeader(clean *csvfile.CleanDataset) *phase {
	p := &phase{name: "Clean dataset header"}
	header, err := clean.Header()
	if errors.Is(err, csvfile.ErrNoData) {
		p.errorf("clean dataset %s is missing or empty", clean.Path())
		return p
	}
	if err != nil {
		p.errorf("read header: %v", err)
		return p
	}
	if want := csvfile.CleanHeader(); !slices.Equal(header, want) {
		p.errorf("header = %v, want %v", header, want)
	}
	return p
}

// validateCleanRows checks every row's reference id, timestamps, provider
// and planned flag. Line numbers count the header as line 1.
func validateCleanRows(rows []csvfile.CleanRow) *phase {
	p := &phase{name: "Clean dataset rows"}
	seen := make(map[string]int, len(rows))

	for i, r := range rows {
		line := i + 2
		ref := strings.TrimSpace(r.ReferenceID)
		switch {
		case ref == "":
			p.errorf("line %d: empty reference_id", line)
		case seen[ref] != 0:
			p.errorf("line %d: reference_id %q duplicates line %d", line, ref, seen[ref])
		default:
			seen[ref] = line
		}

		checkTimestamp(p, line, "outage_start", r.OutageStart)
		checkTimestamp(p, line, "outage_end", r.OutageEnd)

		if !domain.ProviderName(strings.TrimSpace(r.ProviderName)).Known() {
			p.errorf("line %d: unknown provider %q", line, r.ProviderName)
		}
		switch r.Planned {
		case "true", "false", "NA":
		default:
			p.errorf("line %d: planned = %q, want true, false or NA", line, r.Planned)
		}
	}
	return p
}

// checkTimestamp accepts an empty value (null) or the clean layout.
func checkTimestamp(p *phase, line int, column, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse(domain.CleanTimestampLayout, value); err != nil {
		p.errorf("line %d: %s = %q, want layout %s", line, column, value, domain.CleanTimestampLayout)
	}
}

// validateRawCoverage checks that every valid raw record of every provider
// appears in the clean dataset. A provider without a raw file is skipped.
func validateRawCoverage(dataDir string, clean map[string]struct{}) *phase {
	p := &phase{name: "Raw to clean coverage"}
	checkRaw[domain.ElectricityNorthWestRecord](p, dataDir, domain.ProviderElectricityNorthWest, clean)
	checkRaw[domain.NationalGridRecord](p, dataDir, domain.ProviderNationalGrid, clean)
	checkRaw[domain.NorthernPowergridRecord](p, dataDir, domain.ProviderNorthernPowergrid, clean)
	checkRaw[domain.SPEnergyRecord](p, dataDir, domain.ProviderSPEnergyNetworks, clean)
	checkRaw[domain.SSENRecord](p, dataDir, domain.ProviderSSEN, clean)
	checkRaw[domain.UKPowerNetworksRecord](p, dataDir, domain.ProviderUKPowerNetworks, clean)
	return p
}

func checkRaw[T domain.RawRecord](p *phase, dataDir string, provider domain.ProviderName, clean map[string]struct{}) {
	path := csvfile.RawPath(dataDir, provider)
	recs, err := csvfile.ReadRecords[T](path)
	if errors.Is(err, csvfile.ErrNoData) {
		return
	}
	if err != nil {
		p.errorf("%s: %v", provider, err)
		return
	}

	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		key := r.Key()
		if key == "" {
			p.errorf("%s: raw record with empty key", provider)
			continue
		}
		if _, dup := seen[key]; dup {
			p.errorf("%s: raw key %q appears more than once", provider, key)
			continue
		}
		seen[key] = struct{}{}
		if _, ok := clean[key]; !ok {
			p.errorf("%s: raw key %q missing from clean dataset", provider, key)
		}
	}
}
