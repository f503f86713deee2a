package providers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/jszwec/csvutil"
)

// NationalGrid fetches the National Grid (Midlands, South West and Wales)
// outage CSV export.
type NationalGrid struct {
	client *Client
	url    string
}

func NewNationalGrid(client *Client, url string) *NationalGrid {
	return &NationalGrid{client: client, url: url}
}

func (f *NationalGrid) Provider() domain.ProviderName { return domain.ProviderNationalGrid }

func (f *NationalGrid) Fetch(ctx context.Context) ([]domain.NationalGridRecord, error) {
	body, err := f.client.get(ctx, f.url, "text/csv")
	if err != nil {
		return nil, err
	}
	return parseNationalGridCSV(bytes.NewReader(body))
}

// nationalGridRow is a row of the upstream export, before renaming.
type nationalGridRow struct {
	IncidentID string `csv:"Incident ID"`
	StartTime  string `csv:"Start Time"`
	Planned    string `csv:"Planned"`
	ETR        string `csv:"ETR"`
	Region     string `csv:"Region"`
	Postcodes  string `csv:"Postcodes"`
}

func parseNationalGridCSV(r io.Reader) ([]domain.NationalGridRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(cr)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read national grid header: %w", err)
	}

	var out []domain.NationalGridRecord
	for {
		var row nationalGridRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode national grid row: %w", err)
		}
		out = append(out, domain.NationalGridRecord{
			IncidentID:  strings.TrimSpace(row.IncidentID),
			OutageStart: row.StartTime,
			Planned:     row.Planned,
			OutageEnd:   row.ETR,
			Region:      row.Region,
			Postcodes:   row.Postcodes,
		})
	}
	return out, nil
}

// UKPowerNetworks fetches the UK Power Networks live faults dataset.
type UKPowerNetworks struct {
	client *Client
	url    string
}

func NewUKPowerNetworks(client *Client, url string) *UKPowerNetworks {
	return &UKPowerNetworks{client: client, url: url}
}

func (f *UKPowerNetworks) Provider() domain.ProviderName { return domain.ProviderUKPowerNetworks }

func (f *UKPowerNetworks) Fetch(ctx context.Context) ([]domain.UKPowerNetworksRecord, error) {
	body, err := f.client.get(ctx, f.url, "application/json")
	if err != nil {
		return nil, err
	}
	return decodeUKPowerNetworks(body)
}

type ukpnResponse struct {
	Results []ukpnFault `json:"results"`
}

type ukpnFault struct {
	IncidentReference        string `json:"incidentreference"`
	PlannedDate              string `json:"planneddate"`
	PowerCutType             string `json:"powercuttype"`
	EstimatedRestorationDate string `json:"estimatedrestorationdate"`
	PostcodesAffected        string `json:"postcodesaffected"`
}

func decodeUKPowerNetworks(body []byte) ([]domain.UKPowerNetworksRecord, error) {
	var resp ukpnResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode uk power networks response: %w", err)
	}

	out := make([]domain.UKPowerNetworksRecord, 0, len(resp.Results))
	for _, r := range resp.Results {
		planned := "Unplanned"
		if r.PowerCutType == "Planned" {
			planned = "Planned"
		}
		out = append(out, domain.UKPowerNetworksRecord{
			IncidentID:  strings.TrimSpace(r.IncidentReference),
			OutageStart: orNA(r.PlannedDate),
			Planned:     planned,
			OutageEnd:   orNA(r.EstimatedRestorationDate),
			Region:      "UK Power Networks",
			Postcodes:   orNA(r.PostcodesAffected),
		})
	}
	return out, nil
}

// SSEN fetches the Scottish and Southern Electricity Networks faults API.
type SSEN struct {
	client *Client
	url    string
}

func NewSSEN(client *Client, url string) *SSEN {
	return &SSEN{client: client, url: url}
}

func (f *SSEN) Provider() domain.ProviderName { return domain.ProviderSSEN }

func (f *SSEN) Fetch(ctx context.Context) ([]domain.SSENRecord, error) {
	body, err := f.client.get(ctx, f.url, "application/json")
	if err != nil {
		return nil, err
	}
	return decodeSSEN(body)
}

type ssenResponse struct {
	Faults []ssenFault `json:"faults"`
}

type ssenFault struct {
	Reference                   string   `json:"reference"`
	LoggedAtUTC                 string   `json:"loggedAtUtc"`
	Type                        string   `json:"type"`
	EstimatedRestorationTimeUTC string   `json:"estimatedRestorationTimeUtc"`
	AffectedAreas               []string `json:"affectedAreas"`
}

func decodeSSEN(body []byte) ([]domain.SSENRecord, error) {
	var resp ssenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode ssen response: %w", err)
	}

	out := make([]domain.SSENRecord, 0, len(resp.Faults))
	for _, f := range resp.Faults {
		out = append(out, domain.SSENRecord{
			IncidentID:  strings.TrimSpace(f.Reference),
			OutageStart: orNA(f.LoggedAtUTC),
			FaultType:   orNA(f.Type),
			OutageEnd:   orNA(f.EstimatedRestorationTimeUTC),
			Region:      "SSEN",
			Postcodes:   orNA(strings.Join(f.AffectedAreas, ", ")),
		})
	}
	return out, nil
}

// orNA fills a blank raw field with the placeholder the raw layer uses.
func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
