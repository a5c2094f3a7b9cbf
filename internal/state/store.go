// Package state holds the transient view state of a browsing session: which
// RADAR is displayed, which tab is active, and the event time window. Every
// mutation goes through Store.Set, which notifies the key's subscribers.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Key names one slot of the view state.
type Key string

const (
	Radar            Key = "radar"
	RadarProduct     Key = "radar_product"
	RadarProductTime Key = "radar_product_time"
	ActiveTab        Key = "active_tab"
	ActiveUpdate     Key = "active_update"
	Issue            Key = "issue"
	Expire           Key = "expire"
)

// Keys lists every slot in a stable order.
var Keys = []Key{Radar, RadarProduct, RadarProductTime, ActiveTab, ActiveUpdate, Issue, Expire}

// DefaultMaxNotifyDepth bounds re-entrant Set calls made from subscribers.
const DefaultMaxNotifyDepth = 16

// Subscriber receives the new value of a key. A nil value means the key was
// unset. A subscriber that writes back to the store passes ctx to SetContext
// so the write counts as nested.
type Subscriber func(ctx context.Context, value any)

// Store is a key/value store with synchronous change notification.
//
// Subscribers run on the caller's goroutine, after the store lock is
// released, so they may write to the store themselves. Nesting is tracked
// per call chain: a chain deeper than the configured bound has its
// notifications dropped and logged. Concurrent chains never count against
// each other.
type Store struct {
	mu          sync.Mutex
	values      map[Key]any
	subscribers map[Key][]Subscriber
	maxDepth    int
	logger      *slog.Logger
}

type depthKey struct{}

func notifyDepth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// Option configures a Store.
type Option func(*Store)

// WithMaxNotifyDepth overrides the re-entrancy bound.
func WithMaxNotifyDepth(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// New creates an empty store. Every key starts unset.
func New(logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		values:      make(map[Key]any),
		subscribers: make(map[Key][]Subscriber),
		maxDepth:    DefaultMaxNotifyDepth,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current value of key and whether it is set.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns the value of key as a string, or "" when unset or not a string.
func (s *Store) String(key Key) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Time returns the value of key as a time.
func (s *Store) Time(key Key) (time.Time, bool) {
	v, _ := s.Get(key)
	t, ok := v.(time.Time)
	return t, ok
}

// Set overwrites key and notifies its subscribers in registration order,
// starting a new notification chain. Setting the same value twice notifies
// twice.
func (s *Store) Set(key Key, value any) {
	s.SetContext(context.Background(), key, value)
}

// SetContext is Set for writes made from inside a subscriber. ctx is the one
// the subscriber was called with.
func (s *Store) SetContext(ctx context.Context, key Key, value any) {
	if key == "" {
		return
	}
	s.mu.Lock()
	if value == nil {
		delete(s.values, key)
	} else {
		s.values[key] = value
	}
	subs := append([]Subscriber(nil), s.subscribers[key]...)
	s.mu.Unlock()

	depth := notifyDepth(ctx)
	if depth >= s.maxDepth {
		s.logger.Error("state notification depth exceeded, dropping",
			"key", string(key), "max_depth", s.maxDepth)
		return
	}
	nested := context.WithValue(ctx, depthKey{}, depth+1)
	for _, fn := range subs {
		fn(nested, value)
	}
}

// Unset clears key and notifies subscribers with nil.
func (s *Store) Unset(key Key) {
	s.Set(key, nil)
}

// Subscribe registers fn for changes to key. There is no unsubscribe: a
// store lives as long as its session.
func (s *Store) Subscribe(key Key, fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[key] = append(s.subscribers[key], fn)
}

// Snapshot returns a copy of every set value.
func (s *Store) Snapshot() map[Key]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Key]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
