package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"iso space minutes", "2023-01-01 10:00", time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"iso space seconds", "2023-01-01 10:00:30", time.Date(2023, 1, 1, 10, 0, 30, 0, time.UTC)},
		{"iso T naive", "2023-01-01T10:00:00", time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 utc", "2023-06-01T10:00:00Z", time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", "2023-06-01T11:00:00+01:00", time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 fractional", "2023-06-01T10:00:00.123Z", time.Date(2023, 6, 1, 10, 0, 0, 123000000, time.UTC)},
		{"date only", "2023-01-01", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"uk day first", "01/02/2023 10:15", time.Date(2023, 2, 1, 10, 15, 0, 0, time.UTC)},
		{"uk day first single digits", "1/2/2023 09:05", time.Date(2023, 2, 1, 9, 5, 0, 0, time.UTC)},
		{"time then date", "14:30 31/12/2023", time.Date(2023, 12, 31, 14, 30, 0, 0, time.UTC)},
		{"month name", "5 Mar 2024 08:00", time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)},
		{"long month name", "15 March 2024 18:45", time.Date(2024, 3, 15, 18, 45, 0, 0, time.UTC)},
		{"padded", "  2023-01-01 10:00  ", time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"british summer time", "2023-07-01 10:00", time.Date(2023, 7, 1, 9, 0, 0, 0, time.UTC)},
		{"summer day first", "15/08/2024 18:30", time.Date(2024, 8, 15, 17, 30, 0, 0, time.UTC)},
		{"after clocks go back", "29/10/2023 10:00", time.Date(2023, 10, 29, 10, 0, 0, 0, time.UTC)},
		{"summer with offset untouched", "2023-07-01T10:00:00Z", time.Date(2023, 7, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.input)
			require.NotNil(t, got)
			assert.True(t, tt.expected.Equal(*got), "want %s, got %s", tt.expected, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Unparseable(t *testing.T) {
	for _, input := range []string{"", "   ", "N/A", "NA", "nan", "NaT", "-", "soon", "2023-13-45 99:99", "31/31/2023"} {
		t.Run(input, func(t *testing.T) {
			assert.Nil(t, ParseTimestamp(input))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2023, 1, 1, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-01-01 14:00:00", FormatTimestamp(&ts))
	assert.Equal(t, "", FormatTimestamp(nil))
}

func TestParseCleanTimestamp_RoundTripsSummerTime(t *testing.T) {
	ts := time.Date(2023, 7, 1, 9, 0, 0, 0, time.UTC)
	stored := FormatTimestamp(&ts)
	assert.Equal(t, "2023-07-01 09:00:00", stored)

	reparsed := ParseCleanTimestamp(stored)
	require.NotNil(t, reparsed)
	assert.True(t, ts.Equal(*reparsed), "got %s", reparsed)

	assert.Nil(t, ParseCleanTimestamp(""))
	assert.Nil(t, ParseCleanTimestamp("N/A"))
}
