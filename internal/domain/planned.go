package domain

import "strings"

// Planned is the tri-state planned flag of an outage.
type Planned int8

const (
	PlannedUnknown Planned = iota
	PlannedTrue
	PlannedFalse
)

// PlannedFromBool converts a known boolean into a Planned value.
func PlannedFromBool(b bool) Planned {
	if b {
		return PlannedTrue
	}
	return PlannedFalse
}

// Bool returns the boolean value and whether it is known.
func (p Planned) Bool() (value, ok bool) {
	switch p {
	case PlannedTrue:
		return true, true
	case PlannedFalse:
		return false, true
	default:
		return false, false
	}
}

// String returns "true", "false" or "NA".
func (p Planned) String() string {
	switch p {
	case PlannedTrue:
		return "true"
	case PlannedFalse:
		return "false"
	default:
		return "NA"
	}
}

// MarshalText encodes the flag as "true", "false" or "NA".
func (p Planned) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a stored flag. Anything that is not a recognisable
// boolean, including "NA" and the empty string, decodes to PlannedUnknown.
func (p *Planned) UnmarshalText(b []byte) error {
	*p = ParsePlanned(string(b))
	return nil
}

// ParsePlanned reads a boolean-ish clean-layer value. It never fails.
func ParsePlanned(s string) Planned {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return PlannedTrue
	case "false", "f", "no", "n", "0":
		return PlannedFalse
	default:
		return PlannedUnknown
	}
}

// ClassifyStatus maps a free-text outage status onto the planned flag:
// "live" or "restored" means an unplanned fault, a status mentioning a
// planned or scheduled power cut means planned, anything else is unknown.
func ClassifyStatus(status string) Planned {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "live", "restored":
		return PlannedFalse
	}
	if mentionsPlannedPowerCut(s) {
		return PlannedTrue
	}
	return PlannedUnknown
}

// mentionsPlannedPowerCut expects lower-cased input. It is a plain substring
// match, so "unplanned power cut" matches too.
func mentionsPlannedPowerCut(s string) bool {
	return strings.Contains(s, "planned power cut") || strings.Contains(s, "scheduled power cut")
}

// National Grid publishes a "Planned" column; only the literal "true" counts.
func inferPlannedNationalGrid(planned string) Planned {
	return PlannedFromBool(strings.EqualFold(strings.TrimSpace(planned), "true"))
}

// Northern Powergrid categories read like "Planned Power Cut". The flag is
// never unknown here: a blank or unrecognised category is false.
func inferPlannedNorthernPowergrid(category string) Planned {
	return PlannedFromBool(mentionsPlannedPowerCut(strings.ToLower(category)))
}

// SSEN fault types carry the network level. Low-voltage faults are
// unplanned; PSI (planned supply interruption) and HV work are planned.
// Matching is case-sensitive and LV wins over the other markers.
func inferPlannedSSEN(faultType string) Planned {
	switch {
	case strings.Contains(faultType, "LV"):
		return PlannedFalse
	case strings.Contains(faultType, "PSI"), strings.Contains(faultType, "HV"):
		return PlannedTrue
	default:
		return PlannedUnknown
	}
}

// UK Power Networks reports "Planned" or "Unplanned" power cut types.
func inferPlannedUKPowerNetworks(planned string) Planned {
	switch strings.ToLower(strings.TrimSpace(planned)) {
	case "planned":
		return PlannedTrue
	case "unplanned":
		return PlannedFalse
	default:
		return PlannedUnknown
	}
}

// isPlaceholder expects trimmed, lower-cased input.
func isPlaceholder(s string) bool {
	switch s {
	case "", "n/a", "na", "nan", "nat", "none", "null", "-":
		return true
	}
	return false
}
