package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
)

// SPEnergyNetworks scrapes the SP Energy Networks power cut list. The page
// is served fully rendered, so a plain GET is enough.
type SPEnergyNetworks struct {
	client *Client
	url    string
	logger *slog.Logger
}

func NewSPEnergyNetworks(client *Client, endpoint string, logger *slog.Logger) *SPEnergyNetworks {
	return &SPEnergyNetworks{client: client, url: endpoint, logger: logger}
}

func (f *SPEnergyNetworks) Provider() domain.ProviderName { return domain.ProviderSPEnergyNetworks }

func (f *SPEnergyNetworks) Fetch(ctx context.Context) ([]domain.SPEnergyRecord, error) {
	body, err := f.client.get(ctx, f.url, "text/html")
	if err != nil {
		return nil, err
	}
	recs, skipped, err := parseSPEnergyList(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		f.logger.Warn("sp energy networks items with missing fields", "skipped", skipped)
	}
	return recs, nil
}

// parseSPEnergyList reads div.Item entries. Each item holds five div.Field
// children in the order reference, created, estimated restoration, status,
// postcodes. Items with fewer fields are skipped and counted.
func parseSPEnergyList(r io.Reader) ([]domain.SPEnergyRecord, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("parse sp energy networks page: %w", err)
	}

	var (
		out     []domain.SPEnergyRecord
		skipped int
	)
	doc.Find("div.Item").Each(func(_ int, item *goquery.Selection) {
		fields := item.Find("div.Field")
		if fields.Length() < 5 {
			skipped++
			return
		}
		value := func(i int) string {
			v := fields.Eq(i).Find("span.Value").First()
			if v.Length() == 0 {
				return "N/A"
			}
			return strings.TrimSpace(v.Text())
		}
		ref := value(0)
		if ref == "N/A" {
			ref = ""
		}
		out = append(out, domain.SPEnergyRecord{
			IncidentID:  ref,
			OutageStart: value(1),
			OutageEnd:   value(2),
			Status:      value(3),
			Postcodes:   value(4),
		})
	})
	return out, skipped, nil
}

// NorthernPowergrid scrapes the Northern Powergrid power cut map. The list
// is built client-side, so it needs a Renderer.
type NorthernPowergrid struct {
	renderer Renderer
	url      string
}

// NewNorthernPowergrid returns a fetcher; a nil renderer makes every Fetch
// return ErrBrowserDisabled.
func NewNorthernPowergrid(renderer Renderer, endpoint string) *NorthernPowergrid {
	return &NorthernPowergrid{renderer: renderer, url: endpoint}
}

func (f *NorthernPowergrid) Provider() domain.ProviderName { return domain.ProviderNorthernPowergrid }

func (f *NorthernPowergrid) Fetch(ctx context.Context) ([]domain.NorthernPowergridRecord, error) {
	if f.renderer == nil {
		return nil, ErrBrowserDisabled
	}
	html, err := f.renderer.Render(ctx, RenderRequest{
		URL:    f.url,
		Click:  "#ButtonGroupItem6", // "Current power cuts" layer
		Settle: 2 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return parseNorthernPowergrid(strings.NewReader(html))
}

func parseNorthernPowergrid(r io.Reader) ([]domain.NorthernPowergridRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse northern powergrid page: %w", err)
	}

	var out []domain.NorthernPowergridRecord
	doc.Find(".record-list-item").Each(func(_ int, rec *goquery.Selection) {
		var postcodes []string
		rec.Find(".list-group.inline-postcodes span[data-expression]").Each(func(_ int, s *goquery.Selection) {
			if pc := strings.TrimSpace(s.Text()); pc != "" {
				postcodes = append(postcodes, pc)
			}
		})

		premises := ""
		if desktop := rec.Find(".hide-desktop"); desktop.Length() > 2 {
			premises = strings.TrimSpace(desktop.Eq(2).Text())
		}

		out = append(out, domain.NorthernPowergridRecord{
			PowerCutID:        firstText(rec, ".mobile-right", ""),
			Category:          firstText(rec, ".hide-tablet", "N/A"),
			StartTime:         firstText(rec, `div[style*="width: 12%"] span`, "N/A"),
			EndTime:           firstText(rec, `div[style*="width: 15%"] span`, "N/A"),
			PostcodesAffected: strings.Join(postcodes, ", "),
			PremisesAffected:  premises,
		})
	})
	return out, nil
}

// ElectricityNorthWest scrapes the Electricity North West fault list and
// then each fault's detail page.
type ElectricityNorthWest struct {
	renderer Renderer
	url      string
	logger   *slog.Logger
}

// NewElectricityNorthWest returns a fetcher; a nil renderer makes every
// Fetch return ErrBrowserDisabled.
func NewElectricityNorthWest(renderer Renderer, endpoint string, logger *slog.Logger) *ElectricityNorthWest {
	return &ElectricityNorthWest{renderer: renderer, url: endpoint, logger: logger}
}

func (f *ElectricityNorthWest) Provider() domain.ProviderName {
	return domain.ProviderElectricityNorthWest
}

// Fetch renders the listing, then every linked detail page. A detail page
// that fails is logged and skipped.
func (f *ElectricityNorthWest) Fetch(ctx context.Context) ([]domain.ElectricityNorthWestRecord, error) {
	if f.renderer == nil {
		return nil, ErrBrowserDisabled
	}
	listing, err := f.renderer.Render(ctx, RenderRequest{URL: f.url, Settle: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	links, err := parseENWLListing(strings.NewReader(listing), f.url)
	if err != nil {
		return nil, err
	}
	f.logger.Info("electricity north west faults listed", "count", len(links))

	out := make([]domain.ElectricityNorthWestRecord, 0, len(links))
	for i, link := range links {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		html, err := f.renderer.Render(ctx, RenderRequest{
			URL:     link,
			WaitFor: ".c-fault-information__list",
		})
		if err != nil {
			f.logger.Error("render fault detail failed", "fault", i+1, "url", link, "error", err)
			continue
		}
		rec, err := parseENWLDetail(strings.NewReader(html))
		if err != nil {
			f.logger.Error("parse fault detail failed", "fault", i+1, "url", link, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// parseENWLListing returns the absolute detail-page URLs of the listed faults.
func parseENWLListing(r io.Reader, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse electricity north west listing: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	var links []string
	doc.Find(".c-fault-listing__item .c-fault-listing__link").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		links = append(links, u.String())
	})
	return links, nil
}

// parseENWLDetail reads the h3/p pairs of a fault information list into a record.
func parseENWLDetail(r io.Reader) (domain.ElectricityNorthWestRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return domain.ElectricityNorthWestRecord{}, fmt.Errorf("parse electricity north west detail: %w", err)
	}

	details := map[string]string{}
	doc.Find(".c-fault-information__list li").Each(func(_ int, li *goquery.Selection) {
		title := li.Find("h3").First()
		desc := li.Find("p").First()
		if title.Length() == 0 || desc.Length() == 0 {
			return
		}
		details[strings.TrimSpace(title.Text())] = strings.TrimSpace(desc.Text())
	})

	return domain.ElectricityNorthWestRecord{
		Reference:            details["Reference"],
		FirstReportedAt:      details["First reported at"],
		EstimatedRestoration: details["Estimated time of restoration"],
		PostcodesAffected:    details["Postcodes affected"],
	}, nil
}

func firstText(s *goquery.Selection, selector, fallback string) string {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return fallback
	}
	return strings.TrimSpace(sel.Text())
}
