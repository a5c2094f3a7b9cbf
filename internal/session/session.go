// Package session wires one browsing session together: the view-state store,
// history, navigation controller, reload orchestrator, screen model, and the
// view-record publisher.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/vtec-browser/internal/domain"
	"github.com/couchcryptid/vtec-browser/internal/navigation"
	"github.com/couchcryptid/vtec-browser/internal/observability"
	"github.com/couchcryptid/vtec-browser/internal/reload"
	"github.com/couchcryptid/vtec-browser/internal/state"
	"github.com/couchcryptid/vtec-browser/internal/urlcodec"
	"github.com/couchcryptid/vtec-browser/internal/view"
)

// Publisher receives a record each time the session loads an event.
type Publisher interface {
	Publish(ctx context.Context, rec domain.ViewRecord) error
}

// NopPublisher discards view records.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.ViewRecord) error { return nil }

// Location is where the session currently is.
type Location struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	VTEC    string   `json:"vtec"`
	Loaded  string   `json:"loaded"`
	History []string `json:"history"`
}

// Option configures a Session.
type Option func(*options)

type options struct {
	publisher      Publisher
	reloadTimeout  time.Duration
	maxNotifyDepth int
	tileBase       string
	publishTimeout time.Duration
}

// WithPublisher sets where view records go. The default discards them.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithReloadTimeout bounds every load started by the session.
func WithReloadTimeout(d time.Duration) Option {
	return func(o *options) { o.reloadTimeout = d }
}

// WithMaxNotifyDepth bounds nested view-state notifications.
func WithMaxNotifyDepth(n int) Option {
	return func(o *options) { o.maxNotifyDepth = n }
}

// WithTileBase sets the host used in RADAR tile URLs.
func WithTileBase(base string) Option {
	return func(o *options) { o.tileBase = base }
}

// Session is one browsing session. All methods are safe for concurrent use;
// navigation operations are applied one at a time.
type Session struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    options

	store        *state.Store
	history      *navigation.MemoryHistory
	doc          *navigation.MemoryDocument
	controller   *navigation.Controller
	orchestrator *reload.Orchestrator
	screen       *view.Screen

	mu     sync.Mutex
	base   context.Context
	last   *reload.Load
	closed bool

	publishing sync.WaitGroup
}

// New creates a session whose history starts at initialURL. Nothing is
// loaded until Open.
func New(initialURL string, source reload.Source, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Session {
	o := options{
		publisher:      NopPublisher{},
		maxNotifyDepth: state.DefaultMaxNotifyDepth,
		publishTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		logger:  logger,
		metrics: metrics,
		opts:    o,
		store:   state.New(logger, state.WithMaxNotifyDepth(o.maxNotifyDepth)),
		history: navigation.NewMemoryHistory(initialURL),
		doc:     &navigation.MemoryDocument{},
		base:    context.Background(),
	}
	s.screen = view.New(s.store, o.tileBase)
	s.orchestrator = reload.New(source, s.screen, s.store, logger, metrics, o.reloadTimeout)
	s.controller = navigation.New(s.store, s.history, s.doc, logger, metrics, navigation.WithReload(s.onReload))
	return s
}

// Open processes the URL the session was created with and starts the first
// load. ctx bounds every load the session starts from now on.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = ctx
	return s.controller.ConsumeInitialURL(s.history.Current(), s.onReload)
}

// Navigate goes to url as if the user had followed a link.
func (s *Session) Navigate(url string) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Navigate(url)
	return s.location()
}

// Back moves one history entry back. It reports whether history moved.
func (s *Session) Back() (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := s.controller.Back()
	return s.location(), moved
}

// Forward moves one history entry forward.
func (s *Session) Forward() (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := s.controller.Forward()
	return s.location(), moved
}

// SelectEvent switches to id.
func (s *Session) SelectEvent(id domain.EventID) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SelectEvent(id)
	return s.location()
}

// StepEvent moves to the previous or next tracking number.
func (s *Session) StepEvent(delta int) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.StepEvent(delta)
	return s.location()
}

// SelectTab activates a top-level tab.
func (s *Session) SelectTab(tab string) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SelectTab(tab)
	return s.location()
}

// SelectUpdate activates a text-update sub-tab.
func (s *Session) SelectUpdate(update string) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SelectUpdate(update)
	return s.location()
}

// SelectRadar changes the RADAR site, product, or scan.
func (s *Session) SelectRadar(site, product string, scan time.Time) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SelectRadar(site, product, scan)
	return s.location()
}

// Location returns where the session is.
func (s *Session) Location() Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location()
}

// Screen returns a copy of the screen model.
func (s *Session) Screen() view.Snapshot {
	return s.screen.Snapshot()
}

// Wait blocks until the most recent load has finished.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return nil
	}
	return last.Wait(ctx)
}

// CheckReadiness reports ready once any load has shown an event result.
func (s *Session) CheckReadiness(ctx context.Context) error {
	if err := s.orchestrator.CheckReadiness(ctx); err != nil {
		s.metrics.SessionReady.Set(0)
		return err
	}
	s.metrics.SessionReady.Set(1)
	return nil
}

// Close stops publishing view records and waits for in-flight ones. Loads
// started after Close still update the screen.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.publishing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) location() Location {
	id := s.controller.Current()
	return Location{
		URL:     s.history.Current(),
		Title:   s.doc.Title(),
		VTEC:    id.String(),
		Loaded:  s.controller.Loaded(),
		History: s.history.Entries(),
	}
}

// onReload runs with s.mu held.
func (s *Session) onReload(id domain.EventID) {
	s.last = s.orchestrator.Reload(s.base, id)
	if s.closed {
		return
	}

	rec := domain.ViewRecord{
		ID:        id,
		Canonical: urlcodec.Encode(id, urlcodec.View{}),
		ViewedAt:  domain.Clock().Now().UTC(),
	}
	base := s.base
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(base), s.opts.publishTimeout)
		defer cancel()
		if err := s.opts.publisher.Publish(ctx, rec); err != nil {
			s.logger.Error("publish view record", "vtec", id.String(), "error", err)
		}
	}()
}

// Resolution is the canonical form of an arbitrary event URL.
type Resolution struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	VTEC  string `json:"vtec"`
	Shape string `json:"shape"`
}

// Resolve rewrites raw into the canonical query form without loading
// anything. Parts of the identifier raw does not carry come from the
// default event.
func Resolve(raw string) (Resolution, error) {
	canonical, d, err := urlcodec.Migrate(raw, domain.DefaultEventID())
	if err != nil {
		return Resolution{}, err
	}
	id := domain.DefaultEventID()
	if d.HasID {
		id = d.ID
	}
	return Resolution{
		URL:   canonical,
		Title: urlcodec.Title(id),
		VTEC:  id.String(),
		Shape: d.Shape.String(),
	}, nil
}
