package iem

import (
	"errors"
	"math"

	"github.com/tidwall/gjson"

	"github.com/couchcryptid/vtec-browser/internal/domain"
)

// ErrNotFeatureCollection is returned for GeoJSON documents without a
// features array.
var ErrNotFeatureCollection = errors.New("not a GeoJSON feature collection")

// ParseFeatureCollection reads feature properties and the lon/lat bounding
// box of every coordinate in body. The body is kept verbatim in Raw.
func ParseFeatureCollection(body []byte) (domain.FeatureCollection, error) {
	if !gjson.ValidBytes(body) {
		return domain.FeatureCollection{}, errors.New("invalid json")
	}
	features := gjson.GetBytes(body, "features")
	if !features.IsArray() {
		return domain.FeatureCollection{}, ErrNotFeatureCollection
	}

	fc := domain.FeatureCollection{Raw: append([]byte(nil), body...)}
	b := newBounds()
	features.ForEach(func(_, feature gjson.Result) bool {
		props, _ := feature.Get("properties").Value().(map[string]any)
		fc.Features = append(fc.Features, domain.Feature{Properties: props})
		b.addCoordinates(feature.Get("geometry.coordinates"))
		feature.Get("geometry.geometries.#.coordinates").ForEach(func(_, coords gjson.Result) bool {
			b.addCoordinates(coords)
			return true
		})
		return true
	})
	if b.valid() {
		fc.Extent = b.extent
		fc.HasExtent = true
	}
	return fc, nil
}

type bounds struct {
	extent domain.Extent
}

func newBounds() *bounds {
	return &bounds{extent: domain.Extent{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}}
}

func (b *bounds) valid() bool {
	return b.extent.MinLon <= b.extent.MaxLon && b.extent.MinLat <= b.extent.MaxLat
}

// addCoordinates walks a coordinates array of any nesting depth. A position
// is an array whose first element is a number: [lon, lat, ...].
func (b *bounds) addCoordinates(coords gjson.Result) {
	if !coords.IsArray() {
		return
	}
	items := coords.Array()
	if len(items) >= 2 && items[0].Type == gjson.Number {
		b.add(items[0].Float(), items[1].Float())
		return
	}
	for _, item := range items {
		b.addCoordinates(item)
	}
}

func (b *bounds) add(lon, lat float64) {
	b.extent.MinLon = math.Min(b.extent.MinLon, lon)
	b.extent.MaxLon = math.Max(b.extent.MaxLon, lon)
	b.extent.MinLat = math.Min(b.extent.MinLat, lat)
	b.extent.MaxLat = math.Max(b.extent.MaxLat, lat)
}
