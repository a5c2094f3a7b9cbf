// Package view holds the screen model of a browsing session: everything a
// renderer needs to draw the current event, kept current by the reload
// orchestrator and the state store.
package view

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/vtec-browser/internal/domain"
	"github.com/couchcryptid/vtec-browser/internal/state"
	"github.com/couchcryptid/vtec-browser/internal/urlcodec"
)

// Status of the event detail panel.
const (
	StatusLoading  = "loading"
	StatusFound    = "found"
	StatusNotFound = "not_found"
)

const (
	// DefaultTileBase is the host of the cached RADAR tile service.
	DefaultTileBase = "https://mesonet.agron.iastate.edu"

	tileFallback = "USCOMP-N0Q-0"
	stampLayout  = "02/3:04 PM"
)

// TextTab is one text product sub-tab. The "All" tab has no Update key.
type TextTab struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Update    string `json:"update,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	Text      string `json:"text"`
	Active    bool   `json:"active"`
}

// LSRRow is one local storm report table row.
type LSRRow struct {
	Valid     string `json:"utc_valid"`
	Event     string `json:"event"`
	Magnitude string `json:"magnitude"`
	City      string `json:"city"`
	County    string `json:"county"`
	Remark    string `json:"remark"`
}

// Layers are the GeoJSON documents drawn on the map.
type Layers struct {
	County       json.RawMessage `json:"county,omitempty"`
	SBW          json.RawMessage `json:"sbw,omitempty"`
	Intersection json.RawMessage `json:"intersection,omitempty"`
	LSR          json.RawMessage `json:"lsr,omitempty"`
}

// MapCenter is where the map is centred after the county geometry loads.
type MapCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Radar is the RADAR panel: available choices, the current selection, and
// the tile URL template for it.
type Radar struct {
	Sites    []domain.RadarSite    `json:"sites"`
	Products []domain.RadarProduct `json:"products"`
	Scans    []time.Time           `json:"scans"`
	Site     string                `json:"site"`
	Product  string                `json:"product"`
	Selected int                   `json:"selected"`
	TileURL  string                `json:"tile_url"`
}

// Images are the static map renderings for an event.
type Images struct {
	RadarMap   string `json:"radar_map"`
	SBWHistory string `json:"sbw_history"`
}

// Snapshot is a copy of the screen, safe to keep and serialize.
type Snapshot struct {
	VTEC      string                `json:"vtec"`
	Label     string                `json:"label"`
	Status    string                `json:"status"`
	ActiveTab string                `json:"active_tab,omitempty"`
	TextTabs  []TextTab             `json:"text_tabs"`
	UGCs      []domain.UGC          `json:"ugcs"`
	Events    []domain.EventSummary `json:"events"`
	Layers    Layers                `json:"layers"`
	Center    *MapCenter            `json:"center,omitempty"`
	LSRs      []LSRRow              `json:"lsrs"`
	SBWLSRs   []LSRRow              `json:"sbw_lsrs"`
	Radar     Radar                 `json:"radar"`
	Images    Images                `json:"images"`
	Exports   urlcodec.Exports      `json:"exports"`
}

// Screen is the live screen model. It is safe for concurrent use.
type Screen struct {
	store    *state.Store
	tileBase string

	mu   sync.Mutex
	snap Snapshot
}

// New creates a Screen bound to store. The screen follows the active tab,
// the active text update, and the RADAR selection through store
// subscriptions.
func New(store *state.Store, tileBase string) *Screen {
	if tileBase == "" {
		tileBase = DefaultTileBase
	}
	s := &Screen{store: store, tileBase: tileBase}
	s.snap.Status = StatusLoading
	s.snap.Radar.TileURL = s.tileURL("", "", time.Time{})

	store.Subscribe(state.ActiveTab, func(_ context.Context, v any) {
		tab, _ := v.(string)
		s.mu.Lock()
		s.snap.ActiveTab = tab
		s.mu.Unlock()
	})
	store.Subscribe(state.ActiveUpdate, func(_ context.Context, v any) {
		update, _ := v.(string)
		s.mu.Lock()
		activateUpdate(s.snap.TextTabs, update)
		s.mu.Unlock()
	})
	for _, key := range []state.Key{state.Radar, state.RadarProduct, state.RadarProductTime} {
		store.Subscribe(key, func(context.Context, any) { s.refreshRadar() })
	}
	return s
}

// Snapshot returns a deep enough copy of the screen for serialization.
func (s *Screen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.TextTabs = append([]TextTab(nil), s.snap.TextTabs...)
	out.UGCs = append([]domain.UGC(nil), s.snap.UGCs...)
	out.Events = append([]domain.EventSummary(nil), s.snap.Events...)
	out.LSRs = append([]LSRRow(nil), s.snap.LSRs...)
	out.SBWLSRs = append([]LSRRow(nil), s.snap.SBWLSRs...)
	out.Radar.Sites = append([]domain.RadarSite(nil), s.snap.Radar.Sites...)
	out.Radar.Products = append([]domain.RadarProduct(nil), s.snap.Radar.Products...)
	out.Radar.Scans = append([]time.Time(nil), s.snap.Radar.Scans...)
	if s.snap.Center != nil {
		c := *s.snap.Center
		out.Center = &c
	}
	return out
}

// Begin clears everything that belongs to the previous event and fills in
// what can be derived from id alone.
func (s *Screen) Begin(id domain.EventID) {
	site := s.store.String(state.Radar)
	product := s.store.String(state.RadarProduct)
	scan, _ := s.store.Time(state.RadarProductTime)
	tab := s.store.String(state.ActiveTab)

	s.mu.Lock()
	defer s.mu.Unlock()
	dotted := id.DottedKey()
	s.snap = Snapshot{
		VTEC:      id.String(),
		Label:     id.Label(),
		Status:    StatusLoading,
		ActiveTab: tab,
		Images: Images{
			RadarMap:   "/GIS/radmap.php?layers[]=nexrad&layers[]=sbw&layers[]=sbwh&layers[]=uscounties&vtec=" + dotted,
			SBWHistory: "/GIS/sbw-history.php?vtec=" + dotted,
		},
		Exports: urlcodec.ExportURLs(id),
		Radar: Radar{
			Site:    site,
			Product: product,
			TileURL: s.tileURL(site, product, scan),
		},
	}
}

func (s *Screen) ShowEvent(detail domain.EventDetail) {
	update := s.store.String(state.ActiveUpdate)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Status = StatusFound
	s.snap.TextTabs = TextTabs(detail)
	activateUpdate(s.snap.TextTabs, update)
	s.snap.UGCs = append([]domain.UGC(nil), detail.UGCs...)
}

func (s *Screen) ShowEventNotFound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Status = StatusNotFound
	s.snap.TextTabs = nil
	s.snap.UGCs = nil
}

func (s *Screen) SetEvents(events []domain.EventSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Events = append([]domain.EventSummary(nil), events...)
}

func (s *Screen) SetCountyLayer(fc domain.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Layers.County = fc.Raw
	if fc.HasExtent {
		lat, lon := fc.Extent.Center()
		s.snap.Center = &MapCenter{Lat: lat, Lon: lon}
	}
}

func (s *Screen) SetSBWLayer(fc domain.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Layers.SBW = fc.Raw
}

func (s *Screen) SetIntersectionLayer(fc domain.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Layers.Intersection = fc.Raw
}

func (s *Screen) SetLSRs(fc domain.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Layers.LSR = fc.Raw
	s.snap.LSRs = LSRRows(fc)
}

func (s *Screen) SetSBWLSRs(fc domain.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.SBWLSRs = LSRRows(fc)
}

func (s *Screen) SetRadarSites(sites []domain.RadarSite, selected string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Radar.Sites = append([]domain.RadarSite(nil), sites...)
	s.snap.Radar.Site = selected
}

func (s *Screen) SetRadarProducts(products []domain.RadarProduct, selected string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Radar.Products = append([]domain.RadarProduct(nil), products...)
	s.snap.Radar.Product = selected
}

func (s *Screen) SetRadarScans(scans []time.Time, selected int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Radar.Scans = append([]time.Time(nil), scans...)
	s.snap.Radar.Selected = selected
}

// refreshRadar re-reads the RADAR selection from the store.
func (s *Screen) refreshRadar() {
	site := s.store.String(state.Radar)
	product := s.store.String(state.RadarProduct)
	scan, hasScan := s.store.Time(state.RadarProductTime)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Radar.Site = site
	s.snap.Radar.Product = product
	s.snap.Radar.TileURL = s.tileURL(site, product, scan)
	if hasScan {
		for i, ts := range s.snap.Radar.Scans {
			if ts.Equal(scan) {
				s.snap.Radar.Selected = i
			}
		}
	}
}

// tileURL is the XYZ template for a RADAR scan. An incomplete selection
// falls back to the national composite.
func (s *Screen) tileURL(site, product string, scan time.Time) string {
	layer := tileFallback
	if site != "" && product != "" && !scan.IsZero() {
		layer = fmt.Sprintf("%s-%s-%s", site, product, scan.UTC().Format(domain.RadarTimeLayout))
	}
	return s.tileBase + "/cache/tile.py/1.0.0/ridge::" + layer + "/{z}/{x}/{y}.png"
}

// TextTabs builds the text product tabs: "All" with every product, "t0" for
// the issuance, then one tab per follow-up statement. t0 starts active.
func TextTabs(detail domain.EventDetail) []TextTab {
	tabs := make([]TextTab, 0, len(detail.Updates)+2)
	all := TextTab{ID: "tall", Label: "All", Text: detail.Report.Text}
	tabs = append(tabs, all, productTab(0, "Issue", detail.Report))
	tabs[1].Active = true
	for i, p := range detail.Updates {
		n := i + 1
		tabs[0].Text += "\n\n" + p.Text
		tabs = append(tabs, productTab(n, fmt.Sprintf("U%d:", n), p))
	}
	return tabs
}

func productTab(n int, prefix string, p domain.Product) TextTab {
	return TextTab{
		ID:        fmt.Sprintf("t%d", n),
		Label:     prefix + " " + p.Valid.UTC().Format(stampLayout),
		Update:    p.Valid.UTC().Format(domain.RadarTimeLayout),
		Permalink: "/p.php?pid=" + p.ProductID,
		Text:      p.Text,
	}
}

// activateUpdate marks the tab whose update key matches update as active.
// Unknown or empty keys leave the tabs unchanged.
func activateUpdate(tabs []TextTab, update string) {
	if update == "" {
		return
	}
	match := -1
	for i := range tabs {
		if tabs[i].Update == update {
			match = i
		}
	}
	if match < 0 {
		return
	}
	for i := range tabs {
		tabs[i].Active = i == match
	}
}

// LSRRows extracts the storm report table from LSR feature properties.
func LSRRows(fc domain.FeatureCollection) []LSRRow {
	rows := make([]LSRRow, 0, len(fc.Features))
	for _, f := range fc.Features {
		rows = append(rows, LSRRow{
			Valid:     prop(f, "utc_valid"),
			Event:     prop(f, "event"),
			Magnitude: prop(f, "magnitude"),
			City:      prop(f, "city"),
			County:    prop(f, "county"),
			Remark:    prop(f, "remark"),
		})
	}
	return rows
}

func prop(f domain.Feature, key string) string {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
