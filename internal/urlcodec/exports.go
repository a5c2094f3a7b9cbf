package urlcodec

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/vtec-browser/internal/domain"
)

// Exports are the download links offered for an event.
type Exports struct {
	LSRKML          string `json:"lsr_kml"`
	WarningKML      string `json:"warning_kml"`
	IntersectionKML string `json:"intersection_kml"`
	GRPlacefile     string `json:"gr_placefile"`
}

// LegacyQuery is the parameter order the export scripts were written against.
// url.Values would sort the keys, so the pairs are joined by hand.
func LegacyQuery(id domain.EventID) string {
	pairs := [][2]string{
		{ParamYear, strconv.Itoa(id.Year)},
		{ParamPhenomenon, id.Phenomenon},
		{ParamSignificance, id.Significance},
		{ParamEventID, strconv.Itoa(id.Sequence)},
		{ParamOffice, id.Office},
	}
	var b strings.Builder
	for i, p := range pairs {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// ExportURLs builds the export links for id, relative to the archive host.
func ExportURLs(id domain.EventID) Exports {
	q := LegacyQuery(id)
	return Exports{
		LSRKML:          "/kml/sbw_lsrs.php" + q,
		WarningKML:      "/kml/vtec.php" + q,
		IntersectionKML: "/kml/sbw_county_intersect.php" + q,
		GRPlacefile:     "/request/grx/vtec.php" + q,
	}
}
