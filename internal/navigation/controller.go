// Package navigation owns every transition between "the URL changed" and
// "the session's state changed", and decides when event data must be
// reloaded.
package navigation

import (
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/vtec-browser/internal/domain"
	"github.com/couchcryptid/vtec-browser/internal/observability"
	"github.com/couchcryptid/vtec-browser/internal/state"
	"github.com/couchcryptid/vtec-browser/internal/urlcodec"
)

// ErrInitialURLConsumed is returned by a second ConsumeInitialURL call.
var ErrInitialURLConsumed = errors.New("initial url already consumed")

// ReloadFunc is called with the decoded identifier whenever it differs from
// the last loaded one.
type ReloadFunc func(id domain.EventID)

// Controller drives history and view state from URLs. It is not safe for
// concurrent use; callers serialize access.
type Controller struct {
	store    *state.Store
	history  History
	doc      Document
	logger   *slog.Logger
	metrics  *observability.Metrics
	reload   ReloadFunc
	current  domain.EventID
	loaded   string
	consumed bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithReload sets the callback used by Navigate and the Select* operations.
func WithReload(fn ReloadFunc) Option {
	return func(c *Controller) { c.reload = fn }
}

// New creates a Controller starting on domain.DefaultEventID.
func New(store *state.Store, history History, doc Document, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		history: history,
		doc:     doc,
		logger:  logger,
		metrics: metrics,
		current: domain.DefaultEventID(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the identifier currently selected.
func (c *Controller) Current() domain.EventID {
	return c.current
}

// Loaded returns the canonical identifier of the last reload, or "".
func (c *Controller) Loaded() string {
	return c.loaded
}

// Navigate pushes url as a new history entry and processes it.
func (c *Controller) Navigate(url string) {
	c.history.Push(url)
	c.ProcessURL(url, c.reload)
}

// ProcessURL decodes url into the identifier and view state. When the
// identifier differs from the last loaded one, onChanged is called exactly
// once. Legacy shapes are re-encoded and pushed in canonical form.
func (c *Controller) ProcessURL(url string, onChanged ReloadFunc) {
	d, err := urlcodec.Decode(url)
	if err != nil {
		c.logger.Debug("ignoring unrecognized url", "url", url, "error", err)
		c.metrics.Navigations.WithLabelValues(urlcodec.ShapeNone.String()).Inc()
		return
	}
	c.process(d, url, onChanged)
}

// PopState handles a back/forward move: the current history entry is
// processed as if it had just been navigated to.
func (c *Controller) PopState(onChanged ReloadFunc) {
	c.ProcessURL(c.history.Current(), onChanged)
}

// Back moves one entry back and processes it. It reports whether history moved.
func (c *Controller) Back() bool {
	if !c.history.Back() {
		return false
	}
	c.PopState(c.reload)
	return true
}

// Forward moves one entry forward and processes it.
func (c *Controller) Forward() bool {
	if !c.history.Forward() {
		return false
	}
	c.PopState(c.reload)
	return true
}

// ConsumeInitialURL processes the URL the session was opened with. It may
// run once. A URL of no known shape reloads the current (default)
// identifier so the session still shows an event.
func (c *Controller) ConsumeInitialURL(url string, onChanged ReloadFunc) error {
	if c.consumed {
		return ErrInitialURLConsumed
	}
	c.consumed = true

	d, err := urlcodec.Decode(url)
	if err != nil {
		c.logger.Debug("initial url carries no event, loading default", "url", url, "vtec", c.current.String())
		c.markLoaded(onChanged)
		return nil
	}
	c.process(d, url, onChanged)
	return nil
}

// UpdateURL encodes the current identifier and view state, updates the
// document title, and navigates to the result.
func (c *Controller) UpdateURL() string {
	url := urlcodec.Encode(c.current, c.View())
	c.doc.SetTitle(urlcodec.Title(c.current))
	c.Navigate(url)
	return url
}

// View returns the URL-carried part of the view state.
func (c *Controller) View() urlcodec.View {
	v := urlcodec.View{
		Radar: urlcodec.RadarView{
			Site:    c.store.String(state.Radar),
			Product: c.store.String(state.RadarProduct),
		},
		Tab:    c.store.String(state.ActiveTab),
		Update: c.store.String(state.ActiveUpdate),
	}
	if t, ok := c.store.Time(state.RadarProductTime); ok {
		v.Radar.Time = t
	}
	return v
}

// SelectEvent switches to id.
func (c *Controller) SelectEvent(id domain.EventID) string {
	c.current = id
	return c.UpdateURL()
}

// StepEvent moves the event tracking number by delta, staying within range.
func (c *Controller) StepEvent(delta int) string {
	c.current = c.current.Step(delta)
	return c.UpdateURL()
}

// SelectTab activates a top-level tab.
func (c *Controller) SelectTab(tab string) string {
	c.store.Set(state.ActiveTab, tab)
	return c.UpdateURL()
}

// SelectUpdate activates a text-update sub-tab.
func (c *Controller) SelectUpdate(update string) string {
	c.store.Set(state.ActiveUpdate, update)
	return c.UpdateURL()
}

// SelectRadar changes the RADAR selection. Empty or zero parts are left as they are.
func (c *Controller) SelectRadar(site, product string, scan time.Time) string {
	if site != "" {
		c.store.Set(state.Radar, site)
	}
	if product != "" {
		c.store.Set(state.RadarProduct, product)
	}
	if !scan.IsZero() {
		c.store.Set(state.RadarProductTime, scan.UTC())
	}
	return c.UpdateURL()
}

func (c *Controller) process(d urlcodec.Decoded, url string, onChanged ReloadFunc) {
	c.metrics.Navigations.WithLabelValues(d.Shape.String()).Inc()
	for _, err := range d.Skipped {
		c.logger.Warn("skipping malformed url segment", "url", url, "shape", d.Shape.String(), "error", err)
	}

	c.apply(d)

	if c.loaded != c.current.String() {
		c.markLoaded(onChanged)
	}

	if !d.Shape.Canonical() {
		c.metrics.URLMigrations.Inc()
		migrated := c.UpdateURL()
		c.logger.Info("migrated legacy url", "from", url, "to", migrated, "shape", d.Shape.String())
	}
}

func (c *Controller) apply(d urlcodec.Decoded) {
	if d.HasID {
		c.current = d.ID
	}
	if d.Radar.Complete() {
		c.store.Set(state.Radar, d.Radar.Site)
		c.store.Set(state.RadarProduct, d.Radar.Product)
		c.store.Set(state.RadarProductTime, d.Radar.Time)
	}
	if d.Tab != "" && d.Tab != c.store.String(state.ActiveTab) {
		c.store.Set(state.ActiveTab, d.Tab)
	}
	if d.Update != "" && d.Update != c.store.String(state.ActiveUpdate) {
		c.store.Set(state.ActiveUpdate, d.Update)
	}
}

// markLoaded records the current identifier as loaded and fires onChanged.
// Without a callback nothing is loaded, so the marker is left alone.
func (c *Controller) markLoaded(onChanged ReloadFunc) {
	if onChanged == nil {
		return
	}
	c.loaded = c.current.String()
	c.metrics.Reloads.Inc()
	c.logger.Info("event changed, reloading", "vtec", c.loaded)
	onChanged(c.current)
}
