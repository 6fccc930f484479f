package model

// Tier names as emitted by the store analysis endpoint.
const (
	Tier1 = "Tier 1"
	Tier2 = "Tier 2"
	Tier3 = "Tier 3"
)

// StoreRecord is one city-level aggregate from the store analysis dataset.
// Physical stores and tiered recommendation candidates share this shape.
type StoreRecord struct {
	City                     string  `json:"city" yaml:"city"`
	StoreType                string  `json:"store_type,omitempty" yaml:"store_type,omitempty"`
	TotalSalesPerTransaction float64 `json:"total_sales_per_transaction" yaml:"total_sales_per_transaction"`
	CumulativeSpending       float64 `json:"cumulative_spending" yaml:"cumulative_spending"`
	StoreProfit              float64 `json:"store_profit,omitempty" yaml:"store_profit,omitempty"`
	DailyFootfall            float64 `json:"daily_footfall,omitempty" yaml:"daily_footfall,omitempty"`
	AverageOrderValue        float64 `json:"average_order_value,omitempty" yaml:"average_order_value,omitempty"`
	TransactionID            int     `json:"transaction_id" yaml:"transaction_id"` // transaction count
	CustomerID               int     `json:"customer_id" yaml:"customer_id"`       // distinct customers
	Tier                     string  `json:"tier,omitempty" yaml:"tier,omitempty"`
}

// StoreData is the payload of a successful store analysis.
type StoreData struct {
	PhysicalStoreLocations []StoreRecord `json:"physical_store_locations" yaml:"physical_store_locations"`
	Tier1Recommendations   []StoreRecord `json:"tier_1_recommendations" yaml:"tier_1_recommendations"`
	Tier2Recommendations   []StoreRecord `json:"tier_2_recommendations" yaml:"tier_2_recommendations"`
	Tier3Recommendations   []StoreRecord `json:"tier_3_recommendations" yaml:"tier_3_recommendations"`
}

// Tiers returns the recommendation tiers in rank order.
func (d StoreData) Tiers() [][]StoreRecord {
	return [][]StoreRecord{d.Tier1Recommendations, d.Tier2Recommendations, d.Tier3Recommendations}
}

// PointKind distinguishes existing stores from expansion candidates.
type PointKind string

const (
	KindPhysical    PointKind = "physical"
	KindRecommended PointKind = "recommended"
)

// GeoPoint is a StoreRecord resolved to coordinates.
type GeoPoint struct {
	StoreRecord `yaml:",inline"`
	Lat         float64   `json:"lat" yaml:"lat"`
	Lng         float64   `json:"lng" yaml:"lng"`
	Kind        PointKind `json:"kind" yaml:"kind"`
	Resolved    bool      `json:"resolved" yaml:"resolved"` // false when the fallback centroid was used
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"`
}

// Locations holds both mappable point groups.
type Locations struct {
	Physical    []GeoPoint `json:"physical" yaml:"physical"`
	Recommended []GeoPoint `json:"recommended" yaml:"recommended"`
}
