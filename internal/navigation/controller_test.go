package navigation

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vtec-browser/internal/domain"
	"github.com/couchcryptid/vtec-browser/internal/observability"
	"github.com/couchcryptid/vtec-browser/internal/state"
)

const (
	dmxInfo = "?year=2024&wfo=KDMX&phenomena=TO&significance=W&eventid=45&tab=info"
	dmxMap  = "?year=2024&wfo=KDMX&phenomena=TO&significance=W&eventid=45&tab=map"
	oaxInfo = "?year=2023&wfo=KOAX&phenomena=SV&significance=W&eventid=12&tab=info&radar=KOAX&radar_product=N0Q&radar_time=202305011200"
)

type reloadRecorder struct {
	ids []domain.EventID
}

func (r *reloadRecorder) fn(id domain.EventID) {
	r.ids = append(r.ids, id)
}

type fixture struct {
	store   *state.Store
	history *MemoryHistory
	doc     *MemoryDocument
	ctrl    *Controller
	reloads *reloadRecorder
}

func newFixture(t *testing.T, initial string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:   state.New(logger),
		history: NewMemoryHistory(initial),
		doc:     &MemoryDocument{},
		reloads: &reloadRecorder{},
	}
	f.ctrl = New(f.store, f.history, f.doc, logger, observability.NewMetricsForTesting(), WithReload(f.reloads.fn))
	return f
}

func query(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestProcessURL_ReloadsOnNewIdentifier(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL(dmxInfo, f.reloads.fn)

	require.Len(t, f.reloads.ids, 1)
	assert.Equal(t, domain.DefaultEventID(), f.reloads.ids[0])
	assert.Equal(t, "2024-O-NEW-KDMX-TO-W-0045", f.ctrl.Loaded())
	assert.Equal(t, "info", f.store.String(state.ActiveTab))
}

func TestProcessURL_SameIdentifierDoesNotReload(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL(dmxInfo, f.reloads.fn)
	f.ctrl.ProcessURL(dmxMap, f.reloads.fn)

	assert.Len(t, f.reloads.ids, 1, "tab-only change must not reload")
	assert.Equal(t, "map", f.store.String(state.ActiveTab))
}

func TestProcessURL_ReloadsOnceWhenEverythingChanges(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL(dmxInfo, f.reloads.fn)
	f.ctrl.ProcessURL(oaxInfo, f.reloads.fn)

	require.Len(t, f.reloads.ids, 2)
	assert.Equal(t, "2023-O-NEW-KOAX-SV-W-0012", f.reloads.ids[1].String())
	assert.Equal(t, "KOAX", f.store.String(state.Radar))
	assert.Equal(t, "N0Q", f.store.String(state.RadarProduct))
	ts, ok := f.store.Time(state.RadarProductTime)
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC), ts)
}

func TestProcessURL_NilCallbackLeavesMarker(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL(dmxInfo, nil)

	assert.Empty(t, f.ctrl.Loaded())
	assert.Empty(t, f.reloads.ids)
}

func TestProcessURL_UnrecognizedIgnored(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL("/vtec/", f.reloads.fn)

	assert.Empty(t, f.reloads.ids)
	assert.Empty(t, f.history.Entries())
}

func TestProcessURL_SameTabDoesNotRenotify(t *testing.T) {
	f := newFixture(t, "")
	count := 0
	f.store.Subscribe(state.ActiveTab, func(context.Context, any) { count++ })

	f.ctrl.ProcessURL(dmxInfo, f.reloads.fn)
	f.ctrl.ProcessURL(dmxInfo, f.reloads.fn)

	assert.Equal(t, 1, count)
}

func TestProcessURL_LegacyPathMigrates(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL("/event/2024-O-NEW-KDMX-TO-W-0045/tab/info", f.reloads.fn)

	assert.Len(t, f.reloads.ids, 1)
	entries := f.history.Entries()
	require.Len(t, entries, 1, "canonical url pushed once")

	q := query(t, entries[0])
	assert.Equal(t, "2024", q.Get("year"))
	assert.Equal(t, "KDMX", q.Get("wfo"))
	assert.Equal(t, "TO", q.Get("phenomena"))
	assert.Equal(t, "W", q.Get("significance"))
	assert.Equal(t, "45", q.Get("eventid"))
	assert.Equal(t, "info", q.Get("tab"))
	assert.Equal(t, "VTEC Event 2024-O-NEW-KDMX-TO-W-0045", f.doc.Title())
}

func TestProcessURL_LegacyHashMigrates(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL("#2024-O-NEW-KDMX-TO-W-0045/KDMX-N0R-202406071200", f.reloads.fn)

	assert.Len(t, f.reloads.ids, 1)
	entries := f.history.Entries()
	require.Len(t, entries, 1)

	q := query(t, entries[0])
	assert.Equal(t, "KDMX", q.Get("radar"))
	assert.Equal(t, "N0R", q.Get("radar_product"))
	assert.Equal(t, "202406071200", q.Get("radar_time"))
	assert.Equal(t, "info", q.Get("tab"))
}

func TestProcessURL_OfficeCorrectedInEveryShape(t *testing.T) {
	for _, raw := range []string{
		"?year=2024&wfo=KAFG&phenomena=WS&significance=W&eventid=3",
		"/event/2024-O-NEW-KAFG-WS-W-0003/tab/info",
		"#2024-O-NEW-KAFG-WS-W-0003",
	} {
		f := newFixture(t, "")
		f.ctrl.ProcessURL(raw, f.reloads.fn)
		require.Len(t, f.reloads.ids, 1, raw)
		assert.Equal(t, "PAFG", f.reloads.ids[0].Office, raw)
	}
}

func TestProcessURL_MalformedIdentifierKeepsCurrent(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.ProcessURL("/event/2024-KDMX-TO/tab/map", f.reloads.fn)

	assert.Equal(t, domain.DefaultEventID(), f.ctrl.Current())
	assert.Equal(t, "map", f.store.String(state.ActiveTab))
}

func TestNavigate_PushesAndReloads(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.Navigate(dmxInfo)
	f.ctrl.Navigate(dmxMap)

	assert.Equal(t, []string{dmxInfo, dmxMap}, f.history.Entries())
	assert.Len(t, f.reloads.ids, 1)
}

func TestBackForward(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.Navigate(dmxInfo)
	f.ctrl.Navigate(oaxInfo)
	require.Len(t, f.reloads.ids, 2)

	require.True(t, f.ctrl.Back())
	assert.Equal(t, domain.DefaultEventID(), f.ctrl.Current())
	assert.Len(t, f.reloads.ids, 3, "going back to another event reloads")

	require.True(t, f.ctrl.Forward())
	assert.Equal(t, "KOAX", f.ctrl.Current().Office)
	assert.Len(t, f.reloads.ids, 4)

	assert.False(t, f.ctrl.Forward())
	assert.Len(t, f.history.Entries(), 2, "back/forward never push")
}

func TestConsumeInitialURL_Query(t *testing.T) {
	f := newFixture(t, oaxInfo)

	require.NoError(t, f.ctrl.ConsumeInitialURL(oaxInfo, f.reloads.fn))

	require.Len(t, f.reloads.ids, 1)
	assert.Equal(t, "KOAX", f.reloads.ids[0].Office)
	assert.Equal(t, []string{oaxInfo}, f.history.Entries())
}

func TestConsumeInitialURL_LegacyPath(t *testing.T) {
	initial := "/event/2024-O-NEW-KDMX-TO-W-0045/tab/info"
	f := newFixture(t, initial)

	require.NoError(t, f.ctrl.ConsumeInitialURL(initial, f.reloads.fn))

	assert.Len(t, f.reloads.ids, 1)
	entries := f.history.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "45", query(t, entries[1]).Get("eventid"))
}

func TestConsumeInitialURL_Hash(t *testing.T) {
	initial := "https://mesonet.agron.iastate.edu/vtec/#2024-O-NEW-KDMX-TO-W-0045/KDMX-N0R-202406071200"
	f := newFixture(t, initial)

	require.NoError(t, f.ctrl.ConsumeInitialURL(initial, f.reloads.fn))

	assert.Len(t, f.reloads.ids, 1)
	q := query(t, f.history.Current())
	assert.Equal(t, "KDMX", q.Get("radar"))
	assert.Equal(t, "info", q.Get("tab"))
}

func TestConsumeInitialURL_NothingLoadsDefault(t *testing.T) {
	f := newFixture(t, "/vtec/")

	require.NoError(t, f.ctrl.ConsumeInitialURL("/vtec/", f.reloads.fn))

	require.Len(t, f.reloads.ids, 1)
	assert.Equal(t, domain.DefaultEventID(), f.reloads.ids[0])
	assert.Equal(t, "2024-O-NEW-KDMX-TO-W-0045", f.ctrl.Loaded())
}

func TestConsumeInitialURL_OnlyOnce(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, f.ctrl.ConsumeInitialURL("", f.reloads.fn))
	err := f.ctrl.ConsumeInitialURL(dmxInfo, f.reloads.fn)

	require.ErrorIs(t, err, ErrInitialURLConsumed)
	assert.Len(t, f.reloads.ids, 1)
}

func TestSelectEvent(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.ctrl.ConsumeInitialURL("", f.reloads.fn))

	next := domain.EventID{Year: 2024, Office: "KDMX", Phenomenon: "SV", Significance: "W", Sequence: 100}
	u := f.ctrl.SelectEvent(next)

	assert.Equal(t, "100", query(t, u).Get("eventid"))
	require.Len(t, f.reloads.ids, 2)
	assert.Equal(t, next, f.reloads.ids[1])
	assert.Equal(t, "VTEC Event 2024-O-NEW-KDMX-SV-W-0100", f.doc.Title())
}

func TestStepEvent(t *testing.T) {
	f := newFixture(t, "")

	f.ctrl.StepEvent(1)
	assert.Equal(t, 46, f.ctrl.Current().Sequence)

	f.ctrl.StepEvent(-2)
	assert.Equal(t, 44, f.ctrl.Current().Sequence)
	assert.Len(t, f.reloads.ids, 2)
}

func TestSelectTabAndUpdate_NoReload(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.ctrl.ConsumeInitialURL("", f.reloads.fn))

	u := f.ctrl.SelectTab("map")
	assert.Equal(t, "map", query(t, u).Get("tab"))

	u = f.ctrl.SelectUpdate("202406071210")
	assert.Equal(t, "202406071210", query(t, u).Get("update"))
	assert.Equal(t, "map", query(t, u).Get("tab"))

	assert.Len(t, f.reloads.ids, 1)
}

func TestSelectRadar(t *testing.T) {
	f := newFixture(t, "")
	scan := time.Date(2024, 5, 21, 20, 15, 0, 0, time.UTC)

	u := f.ctrl.SelectRadar("KDMX", "N0B", scan)

	q := query(t, u)
	assert.Equal(t, "KDMX", q.Get("radar"))
	assert.Equal(t, "N0B", q.Get("radar_product"))
	assert.Equal(t, "202405212015", q.Get("radar_time"))

	u = f.ctrl.SelectRadar("", "N0Q", time.Time{})
	q = query(t, u)
	assert.Equal(t, "KDMX", q.Get("radar"))
	assert.Equal(t, "N0Q", q.Get("radar_product"))
}

func TestMemoryHistory(t *testing.T) {
	h := NewMemoryHistory("a")
	h.Push("b")
	h.Push("c")
	require.True(t, h.Back())
	require.True(t, h.Back())
	assert.False(t, h.Back())
	assert.Equal(t, "a", h.Current())

	h.Push("d")
	assert.Equal(t, []string{"a", "d"}, h.Entries(), "push discards forward entries")
	assert.False(t, h.Forward())

	empty := NewMemoryHistory("")
	assert.Equal(t, "", empty.Current())
	assert.False(t, empty.Back())
}
