package report

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrFetchInFlight is returned when a fetch is requested while another is
	// outstanding. The call is dropped and state is untouched.
	ErrFetchInFlight = eris.New("report: fetch already in flight")

	// ErrNoMorePages is returned by NextPage once every record has been shown.
	ErrNoMorePages = eris.New("report: no more pages")

	// ErrSuperseded is returned to a caller whose response arrived after
	// Reset or SetCriteria; the response is discarded.
	ErrSuperseded = eris.New("report: response superseded by a newer request")
)

// IncomeRangeNotice is the user-visible message recorded when an income range
// is rejected.
const IncomeRangeNotice = "Min Annual Income cannot be greater than Max Annual Income!"

// ValidationError reports criteria rejected before dispatch.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report: invalid %s: %s", e.Field, e.Message)
}

// FetchError reports a failed page fetch. Previously loaded rows are kept.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("report: data unavailable for page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
