// Package iem is the client for the Iowa Environmental Mesonet VTEC and
// RADAR web services.
package iem

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/vtec-browser/internal/domain"
)

// DefaultBaseURL is the public archive host.
const DefaultBaseURL = "https://mesonet.agron.iastate.edu"

// Endpoint paths, relative to the base URL.
const (
	PathEvent        = "json/vtec_event.py"
	PathEvents       = "json/vtec_events.py"
	PathGeometry     = "geojson/vtec_event.py"
	PathIntersection = "geojson/sbw_county_intersect.geojson"
	PathRadar        = "json/radar.py"
)

// Client decodes archive responses into domain types.
type Client struct {
	fetcher Fetcher
}

// NewClient creates a Client reading through fetcher.
func NewClient(fetcher Fetcher) *Client {
	return &Client{fetcher: fetcher}
}

// EventParams is the query shared by every per-event endpoint.
func EventParams(id domain.EventID) url.Values {
	return url.Values{
		"wfo":          {id.Office},
		"phenomena":    {id.Phenomenon},
		"significance": {id.Significance},
		"etn":          {strconv.Itoa(id.Sequence)},
		"year":         {strconv.Itoa(id.Year)},
	}
}

// Event fetches the detail for id. An unknown event is not an error; the
// returned detail has Exists false.
func (c *Client) Event(ctx context.Context, id domain.EventID) (domain.EventDetail, error) {
	var resp eventResponse
	if err := c.getJSON(ctx, PathEvent, EventParams(id), &resp); err != nil {
		return domain.EventDetail{}, err
	}
	if !resp.EventExists {
		return domain.EventDetail{}, nil
	}

	detail := domain.EventDetail{
		Exists: true,
		Report: resp.Report.product(),
		UGCs:   resp.UGCs,
		Issue:  parseTime(resp.UTCIssue),
		Expire: parseTime(resp.UTCExpire),
	}
	for _, p := range resp.SVS {
		detail.Updates = append(detail.Updates, p.product())
	}
	return detail, nil
}

// Events lists the events sharing id's office, phenomenon, significance, and year.
func (c *Client) Events(ctx context.Context, id domain.EventID) ([]domain.EventSummary, error) {
	var resp eventsResponse
	if err := c.getJSON(ctx, PathEvents, EventParams(id), &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Geometry fetches one of the four geometry views of an event: county/zone
// outlines, the storm-based polygon, all LSRs, or the LSRs inside the polygon.
func (c *Client) Geometry(ctx context.Context, id domain.EventID, sbw, lsrs bool) (domain.FeatureCollection, error) {
	params := EventParams(id)
	params.Set("sbw", flag(sbw))
	params.Set("lsrs", flag(lsrs))
	return c.getGeoJSON(ctx, PathGeometry, params)
}

// Intersection fetches the polygon/county border intersection.
func (c *Client) Intersection(ctx context.Context, id domain.EventID) (domain.FeatureCollection, error) {
	return c.getGeoJSON(ctx, PathIntersection, EventParams(id))
}

// RadarSites lists RADARs with data near (lat, lon) at start.
func (c *Client) RadarSites(ctx context.Context, lat, lon float64, start time.Time) ([]domain.RadarSite, error) {
	params := url.Values{
		"operation": {"available"},
		"lat":       {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":       {strconv.FormatFloat(lon, 'f', -1, 64)},
		"start":     {formatTime(start)},
	}
	var resp struct {
		Radars []domain.RadarSite `json:"radars"`
	}
	if err := c.getJSON(ctx, PathRadar, params, &resp); err != nil {
		return nil, err
	}
	return resp.Radars, nil
}

// RadarProducts lists the products a RADAR offers at start.
func (c *Client) RadarProducts(ctx context.Context, site string, start time.Time) ([]domain.RadarProduct, error) {
	params := url.Values{
		"operation": {"products"},
		"radar":     {site},
		"start":     {formatTime(start)},
	}
	var resp struct {
		Products []domain.RadarProduct `json:"products"`
	}
	if err := c.getJSON(ctx, PathRadar, params, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// RadarScans lists scan times for a RADAR product between start and end.
// Unparseable timestamps are skipped.
func (c *Client) RadarScans(ctx context.Context, site, product string, start, end time.Time) ([]time.Time, error) {
	params := url.Values{
		"operation": {"list"},
		"radar":     {site},
		"product":   {product},
		"start":     {formatTime(start)},
		"end":       {formatTime(end)},
	}
	var resp struct {
		Scans []struct {
			TS string `json:"ts"`
		} `json:"scans"`
	}
	if err := c.getJSON(ctx, PathRadar, params, &resp); err != nil {
		return nil, err
	}
	scans := make([]time.Time, 0, len(resp.Scans))
	for _, s := range resp.Scans {
		if ts := parseTime(s.TS); !ts.IsZero() {
			scans = append(scans, ts)
		}
	}
	return scans, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	body, err := c.fetcher.Fetch(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) getGeoJSON(ctx context.Context, path string, params url.Values) (domain.FeatureCollection, error) {
	body, err := c.fetcher.Fetch(ctx, path, params)
	if err != nil {
		return domain.FeatureCollection{}, err
	}
	fc, err := ParseFeatureCollection(body)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode %s response: %w", path, err)
	}
	return fc, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// formatTime renders t as the ISO-8601 UTC form the RADAR service expects.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTime accepts the timestamp shapes the archive emits. Anything else
// yields the zero time.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Archive response types.

type eventResponse struct {
	EventExists bool             `json:"event_exists"`
	Report      productPayload   `json:"report"`
	SVS         []productPayload `json:"svs"`
	UGCs        []domain.UGC     `json:"ugcs"`
	UTCIssue    string           `json:"utc_issue"`
	UTCExpire   string           `json:"utc_expire"`
}

type productPayload struct {
	ProductID string `json:"product_id"`
	Text      string `json:"text"`
	Valid     string `json:"valid"`
}

func (p productPayload) product() domain.Product {
	return domain.Product{ProductID: p.ProductID, Text: p.Text, Valid: parseTime(p.Valid)}
}

type eventsResponse struct {
	Events []domain.EventSummary `json:"events"`
}
