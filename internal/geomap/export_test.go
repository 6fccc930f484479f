package geomap

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/salesdash/internal/model"
)

func sampleLocations() model.Locations {
	return model.Locations{
		Physical: []model.GeoPoint{{
			StoreRecord: model.StoreRecord{City: "Mumbai", StoreType: "Physical", TotalSalesPerTransaction: 1234.5, CumulativeSpending: 99.25, TransactionID: 12},
			Lat:         19.076, Lng: 72.8777, Kind: model.KindPhysical, Resolved: true, Source: "google",
		}},
		Recommended: []model.GeoPoint{{
			StoreRecord: model.StoreRecord{City: "UnknownVillageXYZ", Tier: model.Tier3, TotalSalesPerTransaction: 10, TransactionID: 1},
			Lat:         20.5937, Lng: 78.9629, Kind: model.KindRecommended, Source: "fallback",
		}},
	}
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleLocations()))

	var fc geojson.FeatureCollection
	require.NoError(t, fc.UnmarshalJSON(buf.Bytes()))
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "physical-0", first.ID)
	pt, ok := first.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 72.8777, pt.X(), 1e-9)
	assert.InDelta(t, 19.076, pt.Y(), 1e-9)
	assert.Equal(t, "Mumbai", first.Properties["city"])
	assert.Equal(t, "physical", first.Properties["kind"])
	assert.Equal(t, true, first.Properties["resolved"])
	assert.Equal(t, "Physical", first.Properties["store_type"])

	second := fc.Features[1]
	assert.Equal(t, "recommended-1", second.ID)
	assert.Equal(t, "Tier 3", second.Properties["tier"])
	assert.Equal(t, false, second.Properties["resolved"])
}

func TestWriteGeoJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, model.Locations{}))
	assert.Contains(t, buf.String(), `"FeatureCollection"`)
	assert.Contains(t, buf.String(), `"features":[]`)
}

func attr(r *shp.Reader, n int) string {
	return strings.TrimRight(r.Attribute(n), "\x00 ")
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.shp")
	locs := sampleLocations()
	locs.Physical[0].City = strings.Repeat("Ahmedabad", 8)
	require.NoError(t, WriteShapefile(path, locs))

	for _, ext := range []string{".shx", ".dbf", ".prj"} {
		_, err := os.Stat(strings.TrimSuffix(path, ".shp") + ext)
		assert.NoError(t, err, ext)
	}

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var rows [][]string
	var points []*shp.Point
	for r.Next() {
		_, s := r.Shape()
		p, ok := s.(*shp.Point)
		require.True(t, ok)
		points = append(points, p)
		var row []string
		for i := range len(r.Fields()) {
			row = append(row, attr(r, i))
		}
		rows = append(rows, row)
	}
	require.Len(t, points, 2)

	assert.InDelta(t, 72.8777, points[0].X, 1e-9)
	assert.InDelta(t, 19.076, points[0].Y, 1e-9)
	assert.Len(t, rows[0][0], cityFieldLen)
	assert.Equal(t, "physical", rows[0][1])
	assert.Equal(t, "1234.50", rows[0][3])
	assert.Equal(t, "12", rows[0][5])
	assert.Equal(t, "1", rows[0][6])

	assert.Equal(t, "UnknownVillageXYZ", rows[1][0])
	assert.Equal(t, "recommended", rows[1][1])
	assert.Equal(t, "Tier 3", rows[1][2])
	assert.Equal(t, "0", rows[1][6])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	// "é" is two bytes; never split it.
	assert.Equal(t, "a", truncate("aé", 2))
}
