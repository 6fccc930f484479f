// Package storeanalysis computes physical store locations and tiered
// expansion recommendations from a retail transactions file.
package storeanalysis

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salesdash/internal/fetcher"
	"github.com/sells-group/salesdash/internal/model"
)

// Store types that drive the analysis.
const (
	StorePhysical = "Physical"
	StoreOnline   = "Online"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	"city", "store_type", "total_sales_per_transaction", "store_profit",
	"daily_footfall", "average_order_value", "cumulative_spending",
	"transaction_id", "customer_id",
}

// MissingColumnsError reports required columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("storeanalysis: missing required columns: %s", strings.Join(e.Columns, ", "))
}

// AnalyzeFile analyzes a .csv or .xlsx file.
func AnalyzeFile(ctx context.Context, path string) (*model.StoreData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return AnalyzeXLSX(ctx, path)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "storeanalysis: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return AnalyzeCSV(ctx, f)
	default:
		return nil, eris.Errorf("storeanalysis: unsupported file type %q", filepath.Ext(path))
	}
}

// AnalyzeCSV analyzes CSV transactions read from r.
func AnalyzeCSV(ctx context.Context, r io.Reader) (*model.StoreData, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true})
	return analyze(rows, errs)
}

// AnalyzeXLSX analyzes the first worksheet of an XLSX workbook.
func AnalyzeXLSX(ctx context.Context, path string) (*model.StoreData, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rows, errs := fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{})
	return analyze(rows, errs)
}

type groupKey struct {
	city      string
	storeType string
}

// group accumulates one (city, store_type) aggregate. Blank cells are
// missing values: they are skipped by sums, means and counts.
type group struct {
	sales, profit, spending float64
	footfallSum             float64
	footfallN               int
	aovSum                  float64
	aovN                    int
	transactions            int
	customers               map[string]struct{}
}

func (g *group) record(key groupKey) model.StoreRecord {
	return model.StoreRecord{
		City:                     key.city,
		StoreType:                key.storeType,
		TotalSalesPerTransaction: g.sales,
		CumulativeSpending:       g.spending,
		StoreProfit:              g.profit,
		DailyFootfall:            mean(g.footfallSum, g.footfallN),
		AverageOrderValue:        mean(g.aovSum, g.aovN),
		TransactionID:            g.transactions,
		CustomerID:               len(g.customers),
	}
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func analyze(rows <-chan []string, errs <-chan error) (*model.StoreData, error) {
	header, ok := <-rows
	if !ok {
		if err := <-errs; err != nil {
			return nil, eris.Wrap(err, "storeanalysis: read header")
		}
		return nil, eris.New("storeanalysis: empty input")
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	groups := make(map[groupKey]*group)
	line := 1
	for row := range rows {
		line++
		if err := accumulate(groups, idx, row); err != nil {
			return nil, eris.Wrapf(err, "storeanalysis: row %d", line)
		}
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "storeanalysis: read rows")
	}

	data := summarize(groups)
	zap.L().Info("storeanalysis: analyzed transactions",
		zap.Int("rows", line-1),
		zap.Int("groups", len(groups)),
		zap.Int("physical", len(data.PhysicalStoreLocations)),
		zap.Int("tier_1", len(data.Tier1Recommendations)),
		zap.Int("tier_2", len(data.Tier2Recommendations)),
		zap.Int("tier_3", len(data.Tier3Recommendations)),
	)
	return data, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return idx, nil
}

func accumulate(groups map[groupKey]*group, idx map[string]int, row []string) error {
	cell := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	key := groupKey{city: cell("city"), storeType: cell("store_type")}
	if key.city == "" || key.storeType == "" {
		return nil
	}

	nums := make(map[string]*float64, 5)
	for _, col := range []string{"total_sales_per_transaction", "store_profit", "daily_footfall", "average_order_value", "cumulative_spending"} {
		v := cell(col)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return eris.Errorf("column %s: invalid number %q", col, v)
		}
		nums[col] = &f
	}

	g, ok := groups[key]
	if !ok {
		g = &group{customers: make(map[string]struct{})}
		groups[key] = g
	}
	if v := nums["total_sales_per_transaction"]; v != nil {
		g.sales += *v
	}
	if v := nums["store_profit"]; v != nil {
		g.profit += *v
	}
	if v := nums["cumulative_spending"]; v != nil {
		g.spending += *v
	}
	if v := nums["daily_footfall"]; v != nil {
		g.footfallSum += *v
		g.footfallN++
	}
	if v := nums["average_order_value"]; v != nil {
		g.aovSum += *v
		g.aovN++
	}
	if cell("transaction_id") != "" {
		g.transactions++
	}
	if c := cell("customer_id"); c != "" {
		g.customers[c] = struct{}{}
	}
	return nil
}

// summarize splits groups into physical stores (sorted by city) and
// recommendations: online cities without a physical store, ranked by sales
// then spending, both descending, and split by tier.
func summarize(groups map[groupKey]*group) *model.StoreData {
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b groupKey) int {
		return cmp.Or(cmp.Compare(a.city, b.city), cmp.Compare(a.storeType, b.storeType))
	})

	hasPhysical := make(map[string]bool)
	for _, k := range keys {
		if k.storeType == StorePhysical {
			hasPhysical[k.city] = true
		}
	}

	data := &model.StoreData{
		PhysicalStoreLocations: []model.StoreRecord{},
		Tier1Recommendations:   []model.StoreRecord{},
		Tier2Recommendations:   []model.StoreRecord{},
		Tier3Recommendations:   []model.StoreRecord{},
	}
	var recommended []model.StoreRecord
	for _, k := range keys {
		rec := groups[k].record(k)
		switch {
		case k.storeType == StorePhysical:
			data.PhysicalStoreLocations = append(data.PhysicalStoreLocations, rec)
		case k.storeType == StoreOnline && !hasPhysical[k.city]:
			rec.Tier = TierOf(k.city)
			recommended = append(recommended, rec)
		}
	}

	slices.SortStableFunc(recommended, func(a, b model.StoreRecord) int {
		return cmp.Or(
			cmp.Compare(b.TotalSalesPerTransaction, a.TotalSalesPerTransaction),
			cmp.Compare(b.CumulativeSpending, a.CumulativeSpending),
		)
	})
	for _, rec := range recommended {
		switch rec.Tier {
		case model.Tier1:
			data.Tier1Recommendations = append(data.Tier1Recommendations, rec)
		case model.Tier2:
			data.Tier2Recommendations = append(data.Tier2Recommendations, rec)
		default:
			data.Tier3Recommendations = append(data.Tier3Recommendations, rec)
		}
	}
	return data
}
