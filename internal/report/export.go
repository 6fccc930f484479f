package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/salesdash/internal/model"
)

// DefaultColumns is the report table's column order. Other keys found in the
// rows follow in alphabetical order.
var DefaultColumns = []string{
	"transaction_date",
	"customer_id",
	"city",
	"state",
	"category",
	"product_name",
	"store_type",
	"payment_method",
}

// Columns returns DefaultColumns present in rows followed by any remaining
// keys, sorted.
func Columns(rows []model.Row) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for _, c := range DefaultColumns {
		if seen[c] {
			cols = append(cols, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	slices.Sort(rest)
	return append(cols, rest...)
}

// FormatValue renders a row value for tabular output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes rows with a header line. A nil cols uses Columns(rows).
func WriteCSV(w io.Writer, rows []model.Row, cols []string) error {
	if cols == nil {
		cols = Columns(rows)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	record := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			record[i] = FormatValue(r[c])
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteXLSX writes rows to a single "report" worksheet. Numeric values are
// stored as numbers.
func WriteXLSX(w io.Writer, rows []model.Row, cols []string) error {
	if cols == nil {
		cols = Columns(rows)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("report")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		for _, c := range cols {
			cell := row.AddCell()
			switch x := r[c].(type) {
			case json.Number:
				if fv, err := x.Float64(); err == nil {
					cell.SetFloat(fv)
					continue
				}
				cell.SetString(x.String())
			case float64:
				cell.SetFloat(x)
			default:
				cell.SetString(FormatValue(x))
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}
