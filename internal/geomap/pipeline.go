// Package geomap turns a store analysis into mappable points: existing
// physical stores and the top expansion candidates of each tier, each
// resolved to coordinates.
package geomap

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/salesdash/internal/model"
	"github.com/sells-group/salesdash/pkg/geocode"
)

// ErrGeocoderUnavailable is returned by Aggregate when the geocoder reports
// no usable backend.
var ErrGeocoderUnavailable = eris.New("geomap: geocoder not available")

// LatLng is a plain coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// DefaultFallback is the centroid of India.
var DefaultFallback = LatLng{Lat: 20.5937, Lng: 78.9629}

// Config controls resolution and ranking. Lookup parallelism belongs to the
// geocode.Client (see geocode.WithBatchConcurrency).
type Config struct {
	Country  string  // appended to each city, default "India"
	Fallback *LatLng // used when a city cannot be resolved; nil means DefaultFallback
	TopN     int     // candidates kept per tier, default 5
}

// DefaultConfig returns the India defaults.
func DefaultConfig() Config {
	fb := DefaultFallback
	return Config{
		Country:  "India",
		Fallback: &fb,
		TopN:     5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Country == "" {
		c.Country = def.Country
	}
	if c.Fallback == nil {
		c.Fallback = def.Fallback
	}
	if c.TopN <= 0 {
		c.TopN = def.TopN
	}
	return c
}

// SelectTopCandidates returns the n records with the highest
// total_sales_per_transaction, highest first. Equal sales keep input order.
// records is not modified.
func SelectTopCandidates(records []model.StoreRecord, n int) []model.StoreRecord {
	if n <= 0 || len(records) == 0 {
		return []model.StoreRecord{}
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.StoreRecord) int {
		return cmp.Compare(b.TotalSalesPerTransaction, a.TotalSalesPerTransaction)
	})
	return sorted[:min(n, len(sorted))]
}

// RecommendedCandidates concatenates the top n of tier 1, tier 2 and tier 3
// in that order.
func RecommendedCandidates(data model.StoreData, n int) []model.StoreRecord {
	out := []model.StoreRecord{}
	for _, tier := range data.Tiers() {
		out = append(out, SelectTopCandidates(tier, n)...)
	}
	return out
}

// Coordinate is a resolved (or substituted) location.
type Coordinate struct {
	Lat      float64
	Lng      float64
	Resolved bool
	Source   string
}

// Resolver looks up "<city>, <country>" and substitutes the fallback
// coordinate on any failure.
type Resolver struct {
	geo geocode.Client
	cfg Config
}

// NewResolver creates a Resolver.
func NewResolver(geo geocode.Client, cfg Config) *Resolver {
	return &Resolver{geo: geo, cfg: cfg.withDefaults()}
}

// Query returns the geocoder query for city.
func (r *Resolver) Query(city string) string {
	return strings.TrimSpace(city) + ", " + r.cfg.Country
}

func (r *Resolver) fallback() Coordinate {
	return Coordinate{Lat: r.cfg.Fallback.Lat, Lng: r.cfg.Fallback.Lng, Source: "fallback"}
}

// Resolve never fails: errors, misses and empty names yield the fallback.
func (r *Resolver) Resolve(ctx context.Context, city string) Coordinate {
	return r.ResolveAll(ctx, []string{city})[0]
}

// ResolveAll resolves cities with one batch call and returns one coordinate
// per city, in order. Empty names are not sent to the geocoder. A failed
// batch yields the fallback for every city.
func (r *Resolver) ResolveAll(ctx context.Context, cities []string) []Coordinate {
	out := make([]Coordinate, len(cities))
	queries := make([]string, 0, len(cities))
	idx := make([]int, 0, len(cities))
	for i, city := range cities {
		out[i] = r.fallback()
		if strings.TrimSpace(city) == "" {
			continue
		}
		queries = append(queries, r.Query(city))
		idx = append(idx, i)
	}
	if len(queries) == 0 {
		return out
	}

	results, err := r.geo.BatchGeocode(ctx, queries)
	if err != nil {
		zap.L().Warn("geomap: batch geocode failed, using fallback",
			zap.Int("cities", len(queries)),
			zap.Error(err),
		)
		return out
	}

	for j, i := range idx {
		if j >= len(results) || !results[j].Matched {
			zap.L().Warn("geomap: no geocode match, using fallback", zap.String("city", cities[i]))
			continue
		}
		res := results[j]
		out[i] = Coordinate{Lat: res.Latitude, Lng: res.Longitude, Resolved: true, Source: res.Source}
	}
	return out
}

func geoPoint(rec model.StoreRecord, kind model.PointKind, c Coordinate) model.GeoPoint {
	return model.GeoPoint{
		StoreRecord: rec,
		Lat:         c.Lat,
		Lng:         c.Lng,
		Kind:        kind,
		Resolved:    c.Resolved,
		Source:      c.Source,
	}
}

// Aggregator builds Locations from a store analysis.
type Aggregator struct {
	geo      geocode.Client
	resolver *Resolver
	cfg      Config
}

// NewAggregator creates an Aggregator.
func NewAggregator(geo geocode.Client, cfg Config) *Aggregator {
	cfg = cfg.withDefaults()
	return &Aggregator{geo: geo, resolver: NewResolver(geo, cfg), cfg: cfg}
}

// Aggregate resolves every physical store and every recommended candidate.
// Both groups resolve concurrently and each keeps its input order. Every
// input record yields exactly one point.
func (a *Aggregator) Aggregate(ctx context.Context, data model.StoreData) (model.Locations, error) {
	if a.geo == nil || !a.geo.Available() {
		return model.Locations{}, ErrGeocoderUnavailable
	}

	recommended := RecommendedCandidates(data, a.cfg.TopN)

	var locs model.Locations
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		locs.Physical = a.resolveGroup(gctx, data.PhysicalStoreLocations, model.KindPhysical)
		return nil
	})
	g.Go(func() error {
		locs.Recommended = a.resolveGroup(gctx, recommended, model.KindRecommended)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return locs, eris.Wrap(err, "geomap: aggregate")
	}

	zap.L().Info("geomap: aggregated locations",
		zap.Int("physical", len(locs.Physical)),
		zap.Int("recommended", len(locs.Recommended)),
		zap.Int("unresolved", countUnresolved(locs)),
	)
	return locs, nil
}

func (a *Aggregator) resolveGroup(ctx context.Context, records []model.StoreRecord, kind model.PointKind) []model.GeoPoint {
	cities := make([]string, len(records))
	for i, rec := range records {
		cities[i] = rec.City
	}
	coords := a.resolver.ResolveAll(ctx, cities)

	points := make([]model.GeoPoint, len(records))
	for i, rec := range records {
		points[i] = geoPoint(rec, kind, coords[i])
	}
	return points
}

func countUnresolved(locs model.Locations) int {
	var n int
	for _, group := range [][]model.GeoPoint{locs.Physical, locs.Recommended} {
		for _, p := range group {
			if !p.Resolved {
				n++
			}
		}
	}
	return n
}
