package report

import (
	"slices"

	"github.com/sells-group/salesdash/internal/model"
)

// Status is the engine's fetch lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusFailed  Status = "failed"
)

// State is a snapshot of the engine. Rows are kept in server order; use
// SortedRows for the display order.
type State struct {
	Rows         []model.Row `json:"rows"`
	TotalRecords int         `json:"total_records"`
	Page         int         `json:"page"`
	PerPage      int         `json:"per_page"`
	Sort         SortState   `json:"sort"`
	Status       Status      `json:"status"`
	Err          error       `json:"-"`
	Notice       string      `json:"notice,omitempty"`
}

func initialState(perPage int) State {
	return State{
		Rows:    []model.Row{},
		PerPage: perPage,
		Sort:    SortState{Direction: Ascending},
		Status:  StatusIdle,
	}
}

// RowsShown counts the records up to and including the current page.
func (s State) RowsShown() int {
	if s.Page < 1 {
		return len(s.Rows)
	}
	return (s.Page-1)*s.PerPage + len(s.Rows)
}

// HasMore reports whether NextPage would fetch.
func (s State) HasMore() bool {
	return s.Status != StatusIdle && s.RowsShown() < s.TotalRecords
}

// SortedRows returns the loaded rows in the current sort order.
func (s State) SortedRows() []model.Row {
	return SortRows(s.Rows, s.Sort)
}

func (s State) clone() State {
	s.Rows = slices.Clone(s.Rows)
	return s
}

// applyStart enters Loading. The previous rows and error stay visible.
func applyStart(s State) State {
	s.Status = StatusLoading
	s.Notice = ""
	return s
}

// applySuccess replaces the visible page and clears any error and sort.
func applySuccess(s State, res *model.ResultPage, requestedPage int) State {
	rows := res.Rows
	if len(rows) > s.PerPage {
		rows = rows[:s.PerPage]
	}
	s.Rows = slices.Clone(rows)
	if s.Rows == nil {
		s.Rows = []model.Row{}
	}
	s.TotalRecords = max(res.TotalRecords, 0)
	s.Page = res.Page
	if s.Page < 1 {
		s.Page = requestedPage
	}
	s.Sort = SortState{Direction: Ascending}
	s.Status = StatusLoaded
	s.Err = nil
	return s
}

// applyFailure records err and keeps the previous rows.
func applyFailure(s State, err error) State {
	s.Status = StatusFailed
	s.Err = err
	return s
}

// applyRejected records a validation notice without dispatching.
func applyRejected(s State, err *ValidationError) State {
	s.Notice = err.Message
	return s
}

// applySort toggles the sort column.
func applySort(s State, key string) State {
	s.Sort = NextSort(s.Sort, key)
	return s
}
