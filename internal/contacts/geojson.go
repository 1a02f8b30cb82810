package contacts

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/connections-cli/internal/model"
)

// WriteGeoJSON writes the plottable subset of enriched rows as a GeoJSON
// FeatureCollection of points, one per contact with coordinates. Rows
// without coordinates are omitted; the map client has nothing to place.
func WriteGeoJSON(w io.Writer, rows []model.EnrichedRow) error {
	fc := &geojson.FeatureCollection{}
	for _, r := range rows {
		if r.Enrichment == nil || !r.Enrichment.Loc.HasPoint() {
			continue
		}
		loc := r.Enrichment.Loc
		props := map[string]any{
			"name":    r.FullName(),
			"company": r.Company,
			"city":    loc.City,
			"country": loc.Country,
		}
		if r.Position != "" {
			props["position"] = r.Position
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{*loc.Longitude, *loc.Latitude}),
			Properties: props,
		})
	}

	raw, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(raw); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
