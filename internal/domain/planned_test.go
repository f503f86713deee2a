package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   string
		expected Planned
	}{
		{"live", PlannedFalse},
		{" LIVE ", PlannedFalse},
		{"Restored", PlannedFalse},
		{"Planned Power Cut", PlannedTrue},
		{"this is a planned power cut in your area", PlannedTrue},
		{"Scheduled power cut", PlannedTrue},
		{"Unplanned power cut", PlannedTrue},
		{"investigating", PlannedUnknown},
		{"", PlannedUnknown},
		{"N/A", PlannedUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyStatus(tt.status))
			// pure: same input, same answer
			assert.Equal(t, ClassifyStatus(tt.status), ClassifyStatus(tt.status))
		})
	}
}

func TestInferPlannedNationalGrid(t *testing.T) {
	assert.Equal(t, PlannedTrue, inferPlannedNationalGrid("true"))
	assert.Equal(t, PlannedTrue, inferPlannedNationalGrid(" TRUE "))
	assert.Equal(t, PlannedFalse, inferPlannedNationalGrid("false"))
	assert.Equal(t, PlannedFalse, inferPlannedNationalGrid("Yes"))
	assert.Equal(t, PlannedFalse, inferPlannedNationalGrid(""))
}

func TestInferPlannedNorthernPowergrid(t *testing.T) {
	tests := []struct {
		category string
		expected Planned
	}{
		{"Planned Power Cut", PlannedTrue},
		{"Scheduled Power Cut", PlannedTrue},
		{"Unplanned Power Cut", PlannedTrue},
		{"Power Cut", PlannedFalse},
		{"N/A", PlannedFalse},
		{"", PlannedFalse},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.expected, inferPlannedNorthernPowergrid(tt.category))
		})
	}
}

func TestInferPlannedSSEN(t *testing.T) {
	tests := []struct {
		faultType string
		expected  Planned
	}{
		{"LV", PlannedFalse},
		{"HV", PlannedTrue},
		{"PSI", PlannedTrue},
		{"LV/HV", PlannedFalse},
		{"lv", PlannedUnknown},
		{"Unplanned", PlannedUnknown},
		{"", PlannedUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.faultType, func(t *testing.T) {
			assert.Equal(t, tt.expected, inferPlannedSSEN(tt.faultType))
		})
	}
}

func TestInferPlannedUKPowerNetworks(t *testing.T) {
	assert.Equal(t, PlannedTrue, inferPlannedUKPowerNetworks("Planned"))
	assert.Equal(t, PlannedFalse, inferPlannedUKPowerNetworks("Unplanned"))
	assert.Equal(t, PlannedUnknown, inferPlannedUKPowerNetworks("Restored"))
	assert.Equal(t, PlannedUnknown, inferPlannedUKPowerNetworks(""))
}

func TestPlanned_TextRoundTrip(t *testing.T) {
	for _, p := range []Planned{PlannedTrue, PlannedFalse, PlannedUnknown} {
		text, err := p.MarshalText()
		assert.NoError(t, err)

		var got Planned
		assert.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, p, got)
	}
}

func TestParsePlanned(t *testing.T) {
	assert.Equal(t, PlannedTrue, ParsePlanned("True"))
	assert.Equal(t, PlannedFalse, ParsePlanned("false"))
	assert.Equal(t, PlannedUnknown, ParsePlanned("NA"))
	assert.Equal(t, PlannedUnknown, ParsePlanned(""))
	assert.Equal(t, PlannedUnknown, ParsePlanned("maybe"))
}

func TestPlanned_Bool(t *testing.T) {
	v, ok := PlannedTrue.Bool()
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = PlannedFalse.Bool()
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = PlannedUnknown.Bool()
	assert.False(t, ok)
}
