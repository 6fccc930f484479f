package geomap

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/salesdash/internal/model"
)

// FeatureCollection converts locations into a GeoJSON feature collection,
// physical stores first.
func FeatureCollection(locs model.Locations) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, group := range [][]model.GeoPoint{locs.Physical, locs.Recommended} {
		for _, p := range group {
			fc.Features = append(fc.Features, &geojson.Feature{
				ID:         featureID(p, len(fc.Features)),
				Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}),
				Properties: properties(p),
			})
		}
	}
	return fc
}

func featureID(p model.GeoPoint, i int) string {
	return string(p.Kind) + "-" + strconv.Itoa(i)
}

func properties(p model.GeoPoint) map[string]interface{} {
	props := map[string]interface{}{
		"city":                        p.City,
		"kind":                        string(p.Kind),
		"total_sales_per_transaction": p.TotalSalesPerTransaction,
		"cumulative_spending":         p.CumulativeSpending,
		"transaction_id":              p.TransactionID,
		"customer_id":                 p.CustomerID,
		"resolved":                    p.Resolved,
	}
	if p.Tier != "" {
		props["tier"] = p.Tier
	}
	if p.StoreType != "" {
		props["store_type"] = p.StoreType
	}
	if p.Source != "" {
		props["source"] = p.Source
	}
	return props
}

// WriteGeoJSON writes locs to w as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, locs model.Locations) error {
	data, err := json.Marshal(FeatureCollection(locs))
	if err != nil {
		return eris.Wrap(err, "geomap: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "geomap: write geojson")
	}
	return nil
}

// Shapefile attribute layout. DBF field names are limited to 10 characters.
const (
	cityFieldLen = 50
	kindFieldLen = 12
	tierFieldLen = 8
)

var shapeFields = []shp.Field{
	shp.StringField("CITY", cityFieldLen),
	shp.StringField("KIND", kindFieldLen),
	shp.StringField("TIER", tierFieldLen),
	shp.FloatField("SALES", 18, 2),
	shp.FloatField("SPEND", 18, 2),
	shp.NumberField("TXNS", 10),
	shp.NumberField("RESOLVED", 1),
}

const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// WriteShapefile writes locs as a POINT shapefile at path (.shp plus the
// .shx, .dbf and .prj siblings).
func WriteShapefile(path string, locs model.Locations) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "geomap: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "geomap: set shapefile fields")
	}

	for _, group := range [][]model.GeoPoint{locs.Physical, locs.Recommended} {
		for _, p := range group {
			row := int(w.Write(&shp.Point{X: p.Lng, Y: p.Lat}))
			resolved := 0
			if p.Resolved {
				resolved = 1
			}
			attrs := []interface{}{
				truncate(p.City, cityFieldLen),
				truncate(string(p.Kind), kindFieldLen),
				truncate(p.Tier, tierFieldLen),
				p.TotalSalesPerTransaction,
				p.CumulativeSpending,
				p.TransactionID,
				resolved,
			}
			for i, v := range attrs {
				if err := w.WriteAttribute(row, i, v); err != nil {
					return eris.Wrapf(err, "geomap: write attribute %s for %s", shapeFields[i].String(), p.City)
				}
			}
		}
	}

	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := os.WriteFile(prj, []byte(wgs84PRJ), 0o644); err != nil {
		return eris.Wrap(err, "geomap: write projection")
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
