package domain

import (
	"encoding/json"
	"time"
)

// DefaultEventID is the identifier shown when a session starts without a URL.
func DefaultEventID() EventID {
	return EventID{Year: 2024, Office: "KDMX", Phenomenon: "TO", Significance: "W", Sequence: 45}
}

// Product is one text product (the issuance or a follow-up statement).
type Product struct {
	ProductID string    `json:"product_id"`
	Text      string    `json:"text"`
	Valid     time.Time `json:"valid"`
}

// UGC is one zone or county row covered by the event.
type UGC struct {
	Code            string `json:"ugc"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	UTCProductIssue string `json:"utc_product_issue"`
	UTCIssue        string `json:"utc_issue"`
	UTCInitExpire   string `json:"utc_init_expire"`
	UTCExpire       string `json:"utc_expire"`
}

// EventDetail is the primary payload for one event. Exists is false for
// identifiers the archive does not know; that is a normal outcome.
type EventDetail struct {
	Exists  bool      `json:"event_exists"`
	Report  Product   `json:"report"`
	Updates []Product `json:"svs"`
	UGCs    []UGC     `json:"ugcs"`
	Issue   time.Time `json:"utc_issue"`
	Expire  time.Time `json:"utc_expire"`
}

// EventSummary is one row of the office/phenomenon/significance event list.
type EventSummary struct {
	EventID      int     `json:"eventid"`
	ProductIssue string  `json:"product_issue"`
	Issue        string  `json:"issue"`
	InitExpire   string  `json:"init_expire"`
	Expire       string  `json:"expire"`
	Area         float64 `json:"area"`
	Locations    string  `json:"locations"`
	Forecaster   string  `json:"fcster"`
}

// Extent is a lon/lat bounding box.
type Extent struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Center returns the midpoint of the box as (lat, lon).
func (e Extent) Center() (lat, lon float64) {
	return (e.MinLat + e.MaxLat) / 2, (e.MinLon + e.MaxLon) / 2
}

// Feature carries the properties of one GeoJSON feature.
type Feature struct {
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is a GeoJSON document passed through to map layers.
// Extent is only meaningful when HasExtent is true.
type FeatureCollection struct {
	Raw       json.RawMessage `json:"-"`
	Features  []Feature       `json:"features"`
	Extent    Extent          `json:"extent"`
	HasExtent bool            `json:"has_extent"`
}

// RadarSite is a RADAR available near an event.
type RadarSite struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RadarProduct is a product available for a RADAR site.
type RadarProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ViewRecord is published whenever a session loads a new event.
type ViewRecord struct {
	ID        EventID   `json:"id"`
	Canonical string    `json:"canonical_url"`
	ViewedAt  time.Time `json:"viewed_at"`
}
