// Package domain models UK distribution network operator (DNO) power outage data.
//
// # Data Sources
//
// Six operators publish live outage feeds, each in its own shape:
//
//	National Grid           CSV export on connecteddata.nationalgrid.co.uk
//	UK Power Networks       opendatasoft JSON API (ukpn-live-faults)
//	SSEN                    JSON fault API (api.sse.com)
//	SP Energy Networks      static HTML list (power_cuts_list.aspx)
//	Northern Powergrid      JavaScript-rendered map page
//	Electricity North West  JavaScript-rendered fault list with detail pages
//
// Every feed becomes one raw record type ([NationalGridRecord],
// [UKPowerNetworksRecord], ...). Raw records are appended to a per-operator
// CSV file and later mapped onto the shared [NormalizedOutage] schema.
//
// # Reference IDs
//
// The reference (incident) ID is the operator-scoped natural key for one
// outage. It is the deduplication key at every layer: raw files, the clean
// dataset, and the outages table. Records without one are dropped.
//
// # Timestamps
//
// Feeds mix ISO 8601, RFC 3339 and UK day-first formats:
//
//	"2023-01-01T10:00:00Z", "2023-01-01 10:00", "01/02/2023 10:00" (1 Feb),
//	"10:00 01/02/2023", "1 Feb 2023 10:00".
//
// Parsing is best effort. A value that matches no known layout, or a
// placeholder such as "N/A", becomes null. Zone-less values are taken as UTC.
//
// # Planned Flag
//
// Whether an outage was planned is tri-state ([Planned]) and inferred per
// operator from a free-text status or category field. The per-operator
// rules live in planned.go and are applied by each record's Normalize method:
//
//	Electricity North West  no signal, always unknown
//	National Grid           "true" -> true, anything else -> false
//	Northern Powergrid      category mentions a planned/scheduled power cut -> true,
//	                        otherwise false, blank included
//	SP Energy Networks      status classifier: live/restored -> false,
//	                        planned/scheduled power cut -> true, else unknown
//	SSEN                    "LV" -> false, "PSI"/"HV" -> true, else unknown
//	UK Power Networks       "Planned" -> true, "Unplanned" -> false, else unknown
package domain
