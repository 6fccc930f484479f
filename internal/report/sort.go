package report

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/sells-group/salesdash/internal/model"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// SortState is the client-side ordering of the loaded rows. An empty Key
// means server order.
type SortState struct {
	Key       string    `json:"key,omitempty" yaml:"key,omitempty"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// NextSort toggles a sort column: the current key while ascending flips to
// descending; anything else sorts key ascending.
func NextSort(cur SortState, key string) SortState {
	if cur.Key == key && cur.Direction == Ascending {
		return SortState{Key: key, Direction: Descending}
	}
	return SortState{Key: key, Direction: Ascending}
}

// SortRows returns a stably sorted copy of rows. rows is not modified.
func SortRows(rows []model.Row, s SortState) []model.Row {
	out := slices.Clone(rows)
	if s.Key == "" || len(out) < 2 {
		return out
	}
	slices.SortStableFunc(out, func(a, b model.Row) int {
		c := compareValues(a[s.Key], b[s.Key])
		if s.Direction == Descending {
			return -c
		}
		return c
	})
	return out
}

// value ranks: missing, bool, number, string, anything else.
const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankOther
)

// compareValues orders two row values by their natural type. Numbers compare
// numerically (JSON numbers included), strings lexicographically.
func compareValues(a, b any) int {
	ra, fa, sa := classify(a)
	rb, fb, sb := classify(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNumber:
		return cmp.Compare(fa, fb)
	case rankBool, rankString, rankOther:
		return strings.Compare(sa, sb)
	}
	return 0
}

func classify(v any) (rank int, num float64, str string) {
	switch x := v.(type) {
	case nil:
		return rankNil, 0, ""
	case bool:
		if x {
			return rankBool, 0, "1"
		}
		return rankBool, 0, "0"
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return rankNumber, f, ""
		}
		return rankString, 0, x.String()
	case float64:
		return rankNumber, x, ""
	case float32:
		return rankNumber, float64(x), ""
	case int:
		return rankNumber, float64(x), ""
	case int64:
		return rankNumber, float64(x), ""
	case string:
		return rankString, 0, x
	default:
		return rankOther, 0, fmt.Sprint(x)
	}
}
