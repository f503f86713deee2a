package domain

import "strings"

// RawRecord is one provider-native outage record. Each provider has its own
// concrete type; the csv tags define that provider's raw file schema.
type RawRecord interface {
	// Key returns the provider-scoped natural identifier.
	Key() string
	// Normalize maps the record onto the shared schema.
	Normalize() NormalizedOutage
}

// NationalGridRecord is a row of the National Grid outage CSV export.
type NationalGridRecord struct {
	IncidentID  string `csv:"incident_id"`
	OutageStart string `csv:"outage_start"`
	Planned     string `csv:"planned"`
	OutageEnd   string `csv:"outage_end"`
	Region      string `csv:"region"`
	Postcodes   string `csv:"postcodes"`
}

func (r NationalGridRecord) Key() string { return strings.TrimSpace(r.IncidentID) }

func (r NationalGridRecord) Normalize() NormalizedOutage {
	return NormalizedOutage{
		ReferenceID:  r.Key(),
		OutageStart:  ParseTimestamp(r.OutageStart),
		OutageEnd:    ParseTimestamp(r.OutageEnd),
		ProviderName: ProviderNationalGrid,
		Planned:      inferPlannedNationalGrid(r.Planned),
	}
}

// UKPowerNetworksRecord is a fault from the UK Power Networks live faults API.
// Planned holds "Planned" or "Unplanned" as derived from powercuttype.
type UKPowerNetworksRecord struct {
	IncidentID  string `csv:"incident_id"`
	OutageStart string `csv:"outage_start"`
	Planned     string `csv:"planned"`
	OutageEnd   string `csv:"outage_end"`
	Region      string `csv:"region"`
	Postcodes   string `csv:"postcodes"`
}

func (r UKPowerNetworksRecord) Key() string { return strings.TrimSpace(r.IncidentID) }

func (r UKPowerNetworksRecord) Normalize() NormalizedOutage {
	return NormalizedOutage{
		ReferenceID:  r.Key(),
		OutageStart:  ParseTimestamp(r.OutageStart),
		OutageEnd:    ParseTimestamp(r.OutageEnd),
		ProviderName: ProviderUKPowerNetworks,
		Planned:      inferPlannedUKPowerNetworks(r.Planned),
	}
}

// SSENRecord is a fault from the SSEN fault API. FaultType is the raw
// "type" field, e.g. "LV", "HV" or "PSI".
type SSENRecord struct {
	IncidentID  string `csv:"incident_id"`
	OutageStart string `csv:"outage_start"`
	FaultType   string `csv:"planned"`
	OutageEnd   string `csv:"outage_end"`
	Region      string `csv:"region"`
	Postcodes   string `csv:"postcodes"`
}

func (r SSENRecord) Key() string { return strings.TrimSpace(r.IncidentID) }

func (r SSENRecord) Normalize() NormalizedOutage {
	return NormalizedOutage{
		ReferenceID:  r.Key(),
		OutageStart:  ParseTimestamp(r.OutageStart),
		OutageEnd:    ParseTimestamp(r.OutageEnd),
		ProviderName: ProviderSSEN,
		Planned:      inferPlannedSSEN(r.FaultType),
	}
}

// SPEnergyRecord is an item scraped from the SP Energy Networks power cut list.
type SPEnergyRecord struct {
	IncidentID  string `csv:"incident_id"`
	OutageStart string `csv:"outage_start"`
	Status      string `csv:"status"`
	OutageEnd   string `csv:"outage_end"`
	Region      string `csv:"region"`
	Postcodes   string `csv:"postcodes"`
}

func (r SPEnergyRecord) Key() string { return strings.TrimSpace(r.IncidentID) }

func (r SPEnergyRecord) Normalize() NormalizedOutage {
	return NormalizedOutage{
		ReferenceID:  r.Key(),
		OutageStart:  ParseTimestamp(r.OutageStart),
		OutageEnd:    ParseTimestamp(r.OutageEnd),
		ProviderName: ProviderSPEnergyNetworks,
		Planned:      ClassifyStatus(r.Status),
	}
}

// NorthernPowergridRecord is a record scraped from the Northern Powergrid map.
type NorthernPowergridRecord struct {
	PowerCutID        string `csv:"Power Cut ID"`
	Category          string `csv:"Category"`
	StartTime         string `csv:"Start Time"`
	EndTime           string `csv:"End Time"`
	PostcodesAffected string `csv:"Postcodes Affected"`
	PremisesAffected  string `csv:"Premises Affected"`
}

func (r NorthernPowergridRecord) Key() string { return strings.TrimSpace(r.PowerCutID) }

func (r NorthernPowergridRecord) Normalize() NormalizedOutage {
	return NormalizedOutage{
		ReferenceID:  r.Key(),
		OutageStart:  ParseTimestamp(r.StartTime),
		OutageEnd:    ParseTimestamp(r.EndTime),
		ProviderName: ProviderNorthernPowergrid,
		Planned:      inferPlannedNorthernPowergrid(r.Category),
	}
}

// ElectricityNorthWestRecord holds the fields of an Electricity North West
// fault detail page. Column names match the page's headings.
type ElectricityNorthWestRecord struct {
	Reference            string `csv:"Reference"`
	FirstReportedAt      string `csv:"First reported at"`
	EstimatedRestoration string `csv:"Estimated time of restoration"`
	PostcodesAffected    string `csv:"Postcodes affected"`
}

func (r ElectricityNorthWestRecord) Key() string { return strings.TrimSpace(r.Reference) }

// Normalize leaves Planned unknown; the fault list has no planned signal.
func (r ElectricityNorthWestRecord) Normalize() NormalizedOutage {
	return NormalizedOutage{
		ReferenceID:  r.Key(),
		OutageStart:  ParseTimestamp(r.FirstReportedAt),
		OutageEnd:    ParseTimestamp(r.EstimatedRestoration),
		ProviderName: ProviderElectricityNorthWest,
		Planned:      PlannedUnknown,
	}
}
