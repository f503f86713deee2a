package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingReference is returned when an outage has no reference ID.
var ErrMissingReference = errors.New("outage has no reference id")

// ProviderName identifies a distribution network operator. The string value
// is the provider_name stored in the providers table.
type ProviderName string

const (
	ProviderElectricityNorthWest ProviderName = "Electricity North West"
	ProviderNationalGrid         ProviderName = "National Grid"
	ProviderNorthernPowergrid    ProviderName = "Northern Powergrid"
	ProviderSPEnergyNetworks     ProviderName = "SP Energy Networks"
	ProviderSSEN                 ProviderName = "Scottish and Southern Energy (SSE)"
	ProviderUKPowerNetworks      ProviderName = "UK Power Networks"
)

// Providers returns every known provider in pipeline order.
func Providers() []ProviderName {
	return []ProviderName{
		ProviderElectricityNorthWest,
		ProviderNationalGrid,
		ProviderNorthernPowergrid,
		ProviderSPEnergyNetworks,
		ProviderSSEN,
		ProviderUKPowerNetworks,
	}
}

// Known reports whether p is one of the providers returned by Providers.
func (p ProviderName) Known() bool {
	for _, known := range Providers() {
		if p == known {
			return true
		}
	}
	return false
}

// NormalizedOutage is the shared schema every provider's raw record maps onto.
type NormalizedOutage struct {
	ReferenceID  string
	OutageStart  *time.Time
	OutageEnd    *time.Time
	ProviderName ProviderName
	Planned      Planned
}

// Validate reports whether the outage can be stored.
func (o NormalizedOutage) Validate() error {
	if strings.TrimSpace(o.ReferenceID) == "" {
		return ErrMissingReference
	}
	if o.ProviderName == "" {
		return errors.New("outage has no provider name")
	}
	return nil
}

// StoredOutage is a persisted row of the outages table.
type StoredOutage struct {
	OutageID    int64      `json:"outage_id"`
	ReferenceID string     `json:"reference_id"`
	OutageStart *time.Time `json:"outage_start"`
	OutageEnd   *time.Time `json:"outage_end"`
	ProviderID  *int64     `json:"provider_id"` // nil when the provider was not found
	Planned     Planned    `json:"planned"`
}

// NewStoredOutage builds the row to insert for a normalized outage.
// A nil providerID is the placeholder for an unknown provider.
func NewStoredOutage(o NormalizedOutage, providerID *int64) StoredOutage {
	return StoredOutage{
		ReferenceID: strings.TrimSpace(o.ReferenceID),
		OutageStart: o.OutageStart,
		OutageEnd:   o.OutageEnd,
		ProviderID:  providerID,
		Planned:     o.Planned,
	}
}

// OutageInserted is published after a new outage row is written.
type OutageInserted struct {
	Outage       StoredOutage `json:"outage"`
	ProviderName ProviderName `json:"provider_name"`
	InsertedAt   time.Time    `json:"inserted_at"`
}
