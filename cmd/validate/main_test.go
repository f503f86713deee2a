package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCleanRows(t *testing.T) {
	rows := []csvfile.CleanRow{
		{ReferenceID: "A", OutageStart: "2023-01-01 10:00:00", ProviderName: "SSEN", Planned: "true"},
		{ReferenceID: "B", OutageEnd: "01/01/2023", ProviderName: string(domain.ProviderSSEN), Planned: "NA"},
		{ReferenceID: "A", ProviderName: string(domain.ProviderSSEN), Planned: "maybe"},
		{ReferenceID: " ", ProviderName: string(domain.ProviderSSEN), Planned: "false"},
	}

	p := validateCleanRows(rows)
	require.Len(t, p.errors, 5)
	assert.Contains(t, p.errors[0], `unknown provider "SSEN"`)
	assert.Contains(t, p.errors[1], "outage_end")
	assert.Contains(t, p.errors[2], "duplicates line 2")
	assert.Contains(t, p.errors[3], "planned")
	assert.Contains(t, p.errors[4], "line 5: empty reference_id")
}

func TestValidateCleanRows_Passes(t *testing.T) {
	p := validateCleanRows([]csvfile.CleanRow{
		{ReferenceID: "REF123", OutageStart: "2023-10-01 08:15:00", ProviderName: string(domain.ProviderElectricityNorthWest), Planned: "NA"},
	})
	assert.True(t, p.passed(), p.errors)
}

func TestValidateHeader(t *testing.T) {
	dir := t.TempDir()

	missing := validateHeader(csvfile.NewCleanDataset(filepath.Join(dir, "missing.csv")))
	assert.False(t, missing.passed())

	good := csvfile.NewCleanDataset(filepath.Join(dir, "clean.csv"))
	require.NoError(t, good.EnsureExists())
	assert.True(t, validateHeader(good).passed())

	badPath := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badPath, []byte("reference_id,provider\n"), 0o644))
	assert.False(t, validateHeader(csvfile.NewCleanDataset(badPath)).passed())
}

func TestValidateRawCoverage(t *testing.T) {
	dir := t.TempDir()
	_, err := csvfile.AppendNew(csvfile.RawPath(dir, domain.ProviderSSEN), []domain.SSENRecord{
		{IncidentID: "S1", FaultType: "LV"},
		{IncidentID: "S2", FaultType: "HV"},
	})
	require.NoError(t, err)

	p := validateRawCoverage(dir, map[string]struct{}{"S1": {}})
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], `"S2" missing`)

	assert.True(t, validateRawCoverage(dir, map[string]struct{}{"S1": {}, "S2": {}}).passed())
}
