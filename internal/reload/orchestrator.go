// Package reload fetches everything shown for one event and hands each
// result to a View as soon as it arrives.
package reload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/vtec-browser/internal/domain"
	"github.com/couchcryptid/vtec-browser/internal/observability"
	"github.com/couchcryptid/vtec-browser/internal/state"
)

// Fetch names, used as log attributes and metric labels.
const (
	FetchEvent        = "event"
	FetchEvents       = "events"
	FetchCounty       = "county"
	FetchSBW          = "sbw"
	FetchIntersection = "intersection"
	FetchLSRs         = "lsrs"
	FetchSBWLSRs      = "sbw_lsrs"
	FetchRadarSites   = "radar_sites"
	FetchRadarProds   = "radar_products"
	FetchRadarScans   = "radar_scans"
)

// Source is the upstream archive.
type Source interface {
	Event(ctx context.Context, id domain.EventID) (domain.EventDetail, error)
	Events(ctx context.Context, id domain.EventID) ([]domain.EventSummary, error)
	Geometry(ctx context.Context, id domain.EventID, sbw, lsrs bool) (domain.FeatureCollection, error)
	Intersection(ctx context.Context, id domain.EventID) (domain.FeatureCollection, error)
	RadarSites(ctx context.Context, lat, lon float64, start time.Time) ([]domain.RadarSite, error)
	RadarProducts(ctx context.Context, site string, start time.Time) ([]domain.RadarProduct, error)
	RadarScans(ctx context.Context, site, product string, start, end time.Time) ([]time.Time, error)
}

// View receives fetch results. Calls for one load arrive in any order and
// are never interleaved with calls for another load.
type View interface {
	Begin(id domain.EventID)
	ShowEvent(detail domain.EventDetail)
	ShowEventNotFound()
	SetEvents(events []domain.EventSummary)
	SetCountyLayer(fc domain.FeatureCollection)
	SetSBWLayer(fc domain.FeatureCollection)
	SetIntersectionLayer(fc domain.FeatureCollection)
	SetLSRs(fc domain.FeatureCollection)
	SetSBWLSRs(fc domain.FeatureCollection)
	SetRadarSites(sites []domain.RadarSite, selected string)
	SetRadarProducts(products []domain.RadarProduct, selected string)
	SetRadarScans(scans []time.Time, selected int)
}

// Orchestrator runs loads. Only results of the most recent load reach the
// View; older results are counted and dropped.
type Orchestrator struct {
	source  Source
	view    View
	store   *state.Store
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration

	// mu orders generation changes against View updates.
	mu         sync.Mutex
	generation uint64
	ready      atomic.Bool
}

// New creates an Orchestrator. A non-positive timeout leaves loads bounded
// only by the caller's context.
func New(source Source, view View, store *state.Store, logger *slog.Logger, metrics *observability.Metrics, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		source:  source,
		view:    view,
		store:   store,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
}

// CheckReadiness returns nil once any load has shown an event result.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("no event has been loaded yet")
	}
	return nil
}

// Generation returns the generation of the most recent load.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation
}

// Load is one in-flight reload.
type Load struct {
	ID         domain.EventID
	Generation uint64
	done       chan struct{}
}

// Wait blocks until the load finishes or ctx is done.
func (l *Load) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// eventWindow is the part of the event detail the radar chain needs.
type eventWindow struct {
	issue, expire time.Time
}

// Reload starts loading id and returns immediately. Older loads keep running
// until their requests finish but can no longer change the View.
func (o *Orchestrator) Reload(ctx context.Context, id domain.EventID) *Load {
	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.view.Begin(id)
	o.mu.Unlock()

	l := &Load{ID: id, Generation: gen, done: make(chan struct{})}
	o.logger.Info("reload started", "vtec", id.String(), "generation", gen)

	var cancel context.CancelFunc = func() {}
	if o.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
	}

	extentCh := make(chan domain.Extent, 1)
	windowCh := make(chan eventWindow, 1)

	var g errgroup.Group
	g.Go(func() error {
		defer close(windowCh)
		o.loadEvent(ctx, gen, id, windowCh)
		return nil
	})
	g.Go(func() error {
		o.loadEvents(ctx, gen, id)
		return nil
	})
	g.Go(func() error {
		defer close(extentCh)
		o.loadCounty(ctx, gen, id, extentCh)
		return nil
	})
	g.Go(func() error {
		o.loadLayer(gen, FetchSBW, func() (domain.FeatureCollection, error) {
			return o.source.Geometry(ctx, id, true, false)
		}, o.view.SetSBWLayer)
		return nil
	})
	g.Go(func() error {
		o.loadLayer(gen, FetchIntersection, func() (domain.FeatureCollection, error) {
			return o.source.Intersection(ctx, id)
		}, o.view.SetIntersectionLayer)
		return nil
	})
	g.Go(func() error {
		o.loadLayer(gen, FetchLSRs, func() (domain.FeatureCollection, error) {
			return o.source.Geometry(ctx, id, false, true)
		}, o.view.SetLSRs)
		return nil
	})
	g.Go(func() error {
		o.loadLayer(gen, FetchSBWLSRs, func() (domain.FeatureCollection, error) {
			return o.source.Geometry(ctx, id, true, true)
		}, o.view.SetSBWLSRs)
		return nil
	})
	g.Go(func() error {
		o.loadRadar(ctx, gen, extentCh, windowCh)
		return nil
	})

	go func() {
		_ = g.Wait()
		cancel()
		close(l.done)
		o.logger.Debug("reload finished", "vtec", id.String(), "generation", gen)
	}()
	return l
}

// apply runs fn under the lock if gen is still current, and reports whether it did.
func (o *Orchestrator) apply(gen uint64, fetch string, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		o.metrics.StaleResults.WithLabelValues(fetch).Inc()
		o.logger.Debug("discarding stale result", "fetch", fetch, "generation", gen, "current", o.generation)
		return false
	}
	fn()
	return true
}

func (o *Orchestrator) fail(fetch string, gen uint64, err error) {
	o.metrics.FetchErrors.WithLabelValues(fetch).Inc()
	o.logger.Error("fetch failed", "fetch", fetch, "generation", gen, "error", err)
}

func (o *Orchestrator) loadEvent(ctx context.Context, gen uint64, id domain.EventID, windowCh chan<- eventWindow) {
	detail, err := o.source.Event(ctx, id)
	if err != nil {
		o.fail(FetchEvent, gen, err)
		return
	}
	o.apply(gen, FetchEvent, func() {
		o.ready.Store(true)
		if !detail.Exists {
			o.logger.Info("event not found", "vtec", id.String())
			o.view.ShowEventNotFound()
			return
		}
		o.view.ShowEvent(detail)
		o.store.Set(state.Issue, detail.Issue)
		o.store.Set(state.Expire, detail.Expire)
		windowCh <- eventWindow{issue: detail.Issue, expire: detail.Expire}
	})
}

func (o *Orchestrator) loadEvents(ctx context.Context, gen uint64, id domain.EventID) {
	events, err := o.source.Events(ctx, id)
	if err != nil {
		o.fail(FetchEvents, gen, err)
		return
	}
	o.apply(gen, FetchEvents, func() { o.view.SetEvents(events) })
}

func (o *Orchestrator) loadCounty(ctx context.Context, gen uint64, id domain.EventID, extentCh chan<- domain.Extent) {
	fc, err := o.source.Geometry(ctx, id, false, false)
	if err != nil {
		o.fail(FetchCounty, gen, err)
		return
	}
	o.apply(gen, FetchCounty, func() {
		o.view.SetCountyLayer(fc)
		if fc.HasExtent {
			extentCh <- fc.Extent
		}
	})
}

func (o *Orchestrator) loadLayer(gen uint64, fetch string, get func() (domain.FeatureCollection, error), set func(domain.FeatureCollection)) {
	fc, err := get()
	if err != nil {
		o.fail(fetch, gen, err)
		return
	}
	o.apply(gen, fetch, func() { set(fc) })
}

// loadRadar walks sites, products, then scans. It starts once the county
// geometry has a centre and the event detail has an issue time, and gives up
// quietly when either never arrives.
func (o *Orchestrator) loadRadar(ctx context.Context, gen uint64, extentCh <-chan domain.Extent, windowCh <-chan eventWindow) {
	extent, ok := <-extentCh
	if !ok {
		o.logger.Debug("radar chain skipped, no county extent", "generation", gen)
		return
	}
	window, ok := <-windowCh
	if !ok {
		o.logger.Debug("radar chain skipped, no issue time", "generation", gen)
		return
	}

	lat, lon := extent.Center()
	sites, err := o.source.RadarSites(ctx, lat, lon, window.issue)
	if err != nil {
		o.fail(FetchRadarSites, gen, err)
		return
	}
	var site string
	if !o.apply(gen, FetchRadarSites, func() {
		site = o.selectDefault(state.Radar, siteIDs(sites))
		o.view.SetRadarSites(sites, site)
	}) || site == "" {
		return
	}

	products, err := o.source.RadarProducts(ctx, site, window.issue)
	if err != nil {
		o.fail(FetchRadarProds, gen, err)
		return
	}
	var product string
	if !o.apply(gen, FetchRadarProds, func() {
		product = o.selectDefault(state.RadarProduct, productIDs(products))
		o.view.SetRadarProducts(products, product)
	}) || product == "" {
		return
	}

	scans, err := o.source.RadarScans(ctx, site, product, window.issue, window.expire)
	if err != nil {
		o.fail(FetchRadarScans, gen, err)
		return
	}
	o.apply(gen, FetchRadarScans, func() {
		o.view.SetRadarScans(scans, o.selectScan(scans))
	})
}

// selectDefault returns the stored value for key, storing the first option
// when the key is unset.
func (o *Orchestrator) selectDefault(key state.Key, options []string) string {
	if v := o.store.String(key); v != "" {
		return v
	}
	if len(options) == 0 {
		return ""
	}
	o.store.Set(key, options[0])
	return options[0]
}

// selectScan returns the index of the stored scan time, storing the first
// scan when none is set. Unknown times select index 0.
func (o *Orchestrator) selectScan(scans []time.Time) int {
	current, ok := o.store.Time(state.RadarProductTime)
	if !ok {
		if len(scans) > 0 {
			o.store.Set(state.RadarProductTime, scans[0])
		}
		return 0
	}
	idx := 0
	for i, ts := range scans {
		if ts.Equal(current) {
			idx = i
		}
	}
	return idx
}

func siteIDs(sites []domain.RadarSite) []string {
	ids := make([]string, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	return ids
}

func productIDs(products []domain.RadarProduct) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}
