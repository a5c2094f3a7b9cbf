// Package urlcodec maps an event identifier plus the navigable view state to
// and from a URL.
//
// Three URL generations exist in the wild. Decoding tries each in priority
// order; encoding only ever produces the first:
//
//	?year=2024&wfo=KDMX&phenomena=TO&significance=W&eventid=45&tab=info   (query)
//	/event/2024-O-NEW-KDMX-TO-W-0045/radar/KDMX-N0Q-202406071200/tab/info  (path)
//	#2024-O-NEW-KDMX-TO-W-0045/KDMX-N0Q-202406071200                       (hash)
package urlcodec

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/vtec-browser/internal/domain"
)

// ErrUnrecognized is returned when a URL matches none of the known shapes.
var ErrUnrecognized = errors.New("url does not match any known shape")

// Shape identifies which URL generation a decode matched.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeQuery
	ShapePath
	ShapeHash
)

func (s Shape) String() string {
	switch s {
	case ShapeQuery:
		return "query"
	case ShapePath:
		return "path"
	case ShapeHash:
		return "hash"
	default:
		return "none"
	}
}

// Canonical reports whether URLs of this shape need no migration.
func (s Shape) Canonical() bool {
	return s == ShapeQuery
}

// Query parameter names of the canonical form.
const (
	ParamYear         = "year"
	ParamOffice       = "wfo"
	ParamPhenomenon   = "phenomena"
	ParamSignificance = "significance"
	ParamEventID      = "eventid"
	ParamTab          = "tab"
	ParamUpdate       = "update"
	ParamRadar        = "radar"
	ParamRadarProduct = "radar_product"
	ParamRadarTime    = "radar_time"
)

// DefaultMigratedTab is the tab selected when a hash URL is migrated.
const DefaultMigratedTab = "info"

// RadarView selects a RADAR site, product and scan time.
type RadarView struct {
	Site    string
	Product string
	Time    time.Time
}

// Complete reports whether all three parts are set; only complete
// selections are written to a URL.
func (r RadarView) Complete() bool {
	return r.Site != "" && r.Product != "" && !r.Time.IsZero()
}

// View is the part of the view state carried in the URL.
type View struct {
	Radar  RadarView
	Tab    string
	Update string
}

// Decoded is the result of decoding one URL. Fields the URL did not carry
// are left zero; Skipped records malformed parts that were ignored.
type Decoded struct {
	Shape   Shape
	ID      domain.EventID
	HasID   bool
	Radar   RadarView
	Tab     string
	Update  string
	Skipped []error
}

type decoder func(u *url.URL) (Decoded, bool)

// decoders is tried in order; the first shape that matches wins.
var decoders = []decoder{decodeQuery, decodePath, decodeHash}

// Decode parses raw (absolute, path-only, query-only or fragment-only) and
// returns what it carries.
func Decode(raw string) (Decoded, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrUnrecognized, err)
	}
	for _, dec := range decoders {
		if d, ok := dec(u); ok {
			return d, nil
		}
	}
	return Decoded{}, ErrUnrecognized
}

func decodeQuery(u *url.URL) (Decoded, bool) {
	if u.RawQuery == "" {
		return Decoded{}, false
	}
	q := u.Query()
	d := Decoded{Shape: ShapeQuery}

	year, wfo, phen, sig, etn := q.Get(ParamYear), q.Get(ParamOffice), q.Get(ParamPhenomenon), q.Get(ParamSignificance), q.Get(ParamEventID)
	if year != "" && wfo != "" && phen != "" && sig != "" && etn != "" {
		id, err := idFromFields(year, wfo, phen, sig, etn)
		if err != nil {
			d.Skipped = append(d.Skipped, err)
		} else {
			d.ID, d.HasID = id, true
		}
	}

	site, product, ts := q.Get(ParamRadar), q.Get(ParamRadarProduct), q.Get(ParamRadarTime)
	if site != "" && product != "" && ts != "" {
		if r, err := radarFromParts(site, product, ts); err != nil {
			d.Skipped = append(d.Skipped, err)
		} else {
			d.Radar = r
		}
	}

	d.Tab = q.Get(ParamTab)
	d.Update = q.Get(ParamUpdate)
	return d, true
}

// decodePath scans key/value segment pairs. A path matches only when at
// least one known key is present, so unrelated paths fall through to the
// hash form.
func decodePath(u *url.URL) (Decoded, bool) {
	segments := splitNonEmpty(u.Path, "/")
	d := Decoded{Shape: ShapePath}
	matched := false

	for i := 0; i+1 < len(segments); {
		key, value := segments[i], segments[i+1]
		switch key {
		case "event":
			if id, err := domain.ParseEventID(value); err != nil {
				d.Skipped = append(d.Skipped, err)
			} else {
				d.ID, d.HasID = id, true
			}
		case "radar":
			if r, err := parseRadarToken(value); err != nil {
				d.Skipped = append(d.Skipped, err)
			} else {
				d.Radar = r
			}
		case "tab":
			d.Tab = value
		case "update":
			d.Update = value
		default:
			i++
			continue
		}
		matched = true
		i += 2
	}
	return d, matched
}

func decodeHash(u *url.URL) (Decoded, bool) {
	if u.Fragment == "" {
		return Decoded{}, false
	}
	d := Decoded{Shape: ShapeHash, Tab: DefaultMigratedTab}

	parts := strings.Split(u.Fragment, "/")
	if id, err := domain.ParseEventID(parts[0]); err != nil {
		d.Skipped = append(d.Skipped, err)
	} else {
		d.ID, d.HasID = id, true
	}
	if len(parts) > 1 && parts[1] != "" {
		if r, err := parseRadarToken(parts[1]); err != nil {
			d.Skipped = append(d.Skipped, err)
		} else {
			d.Radar = r
		}
	}
	return d, true
}

func idFromFields(year, wfo, phen, sig, etn string) (domain.EventID, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return domain.EventID{}, fmt.Errorf("%w: year %q", domain.ErrInvalidFormat, year)
	}
	seq, err := strconv.Atoi(etn)
	if err != nil {
		return domain.EventID{}, fmt.Errorf("%w: eventid %q", domain.ErrInvalidFormat, etn)
	}
	return domain.NewEventID(y, wfo, phen, sig, seq)
}

// parseRadarToken splits SITE-PRODUCT-YYYYMMDDHHmm.
func parseRadarToken(token string) (RadarView, error) {
	parts := strings.Split(token, "-")
	if len(parts) != 3 {
		return RadarView{}, fmt.Errorf("radar token %q: want site-product-time", token)
	}
	return radarFromParts(parts[0], parts[1], parts[2])
}

func radarFromParts(site, product, ts string) (RadarView, error) {
	t, err := time.ParseInLocation(domain.RadarTimeLayout, ts, time.UTC)
	if err != nil {
		return RadarView{}, fmt.Errorf("radar time %q: %w", ts, err)
	}
	return RadarView{Site: site, Product: product, Time: t}, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Encode returns the canonical query form for id and v. The identifier is
// always present; the radar selection only when complete.
func Encode(id domain.EventID, v View) string {
	params := url.Values{}
	params.Set(ParamYear, strconv.Itoa(id.Year))
	params.Set(ParamOffice, id.Office)
	params.Set(ParamPhenomenon, id.Phenomenon)
	params.Set(ParamSignificance, id.Significance)
	params.Set(ParamEventID, strconv.Itoa(id.Sequence))
	if v.Tab != "" {
		params.Set(ParamTab, v.Tab)
	}
	if v.Radar.Complete() {
		params.Set(ParamRadar, v.Radar.Site)
		params.Set(ParamRadarProduct, v.Radar.Product)
		params.Set(ParamRadarTime, v.Radar.Time.UTC().Format(domain.RadarTimeLayout))
	}
	if v.Update != "" {
		params.Set(ParamUpdate, v.Update)
	}
	return "?" + params.Encode()
}

// Title is the document title for id.
func Title(id domain.EventID) string {
	return "VTEC Event " + id.String()
}

// Migrate decodes raw and returns its canonical form. When raw carries no
// usable identifier, base is encoded instead.
func Migrate(raw string, base domain.EventID) (string, Decoded, error) {
	d, err := Decode(raw)
	if err != nil {
		return "", d, err
	}
	id := base
	if d.HasID {
		id = d.ID
	}
	return Encode(id, View{Radar: d.Radar, Tab: d.Tab, Update: d.Update}), d, nil
}
