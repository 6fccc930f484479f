package report

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salesdash/internal/model"
)

// DataSource serves pages of filtered rows.
type DataSource interface {
	FilteredData(ctx context.Context, q model.Query) (*model.ResultPage, error)
}

// Engine drives one report view. All state changes go through the reducers
// in state.go under mu. Every dispatch takes a new token; a response is
// applied only if its token is still the latest.
type Engine struct {
	src     DataSource
	perPage int

	mu       sync.Mutex
	state    State
	criteria Criteria
	token    uint64
}

// NewEngine creates an idle engine. perPage <= 0 means 10.
func NewEngine(src DataSource, perPage int) *Engine {
	if perPage <= 0 {
		perPage = 10
	}
	return &Engine{src: src, perPage: perPage, state: initialState(perPage)}
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Criteria returns the criteria of the most recent dispatch (with rejected
// income bounds cleared).
func (e *Engine) Criteria() Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria
}

// FetchPage requests one page for c. Rejected criteria return a
// *ValidationError without dispatching; the income bounds are cleared and a
// notice is recorded. A failed request returns a *FetchError and keeps the
// previous rows. If another fetch is outstanding, ErrFetchInFlight is returned
// and nothing changes.
func (e *Engine) FetchPage(ctx context.Context, c Criteria, page int) (State, error) {
	c = c.Normalize()
	if page < 1 {
		page = 1
	}

	if err := ValidateIncomeRange(c.MinAnnualIncome, c.MaxAnnualIncome); err != nil {
		var vErr *ValidationError
		errors.As(err, &vErr)

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state.Status == StatusLoading {
			return e.state.clone(), ErrFetchInFlight
		}
		c.MinAnnualIncome, c.MaxAnnualIncome = "", ""
		e.criteria = c
		e.state = applyRejected(e.state, vErr)
		return e.state.clone(), err
	}

	e.mu.Lock()
	if e.state.Status == StatusLoading {
		snap := e.state.clone()
		e.mu.Unlock()
		zap.L().Debug("report: fetch dropped, another is in flight", zap.Int("page", page))
		return snap, ErrFetchInFlight
	}
	token := e.begin(c)
	e.mu.Unlock()

	return e.await(ctx, c, page, token)
}

// NextPage fetches the page after the current one with the last criteria.
// Once every record has been shown it returns ErrNoMorePages and does nothing.
func (e *Engine) NextPage(ctx context.Context) (State, error) {
	e.mu.Lock()
	if e.state.Status == StatusLoading {
		snap := e.state.clone()
		e.mu.Unlock()
		return snap, ErrFetchInFlight
	}
	if !e.state.HasMore() {
		snap := e.state.clone()
		e.mu.Unlock()
		return snap, ErrNoMorePages
	}
	c, next := e.criteria, e.state.Page+1
	token := e.begin(c)
	e.mu.Unlock()

	return e.await(ctx, c, next, token)
}

// begin marks a dispatch for c and returns its token. mu must be held.
func (e *Engine) begin(c Criteria) uint64 {
	e.token++
	e.criteria = c
	e.state = applyStart(e.state)
	return e.token
}

// await runs the request for token and applies its outcome if still current.
func (e *Engine) await(ctx context.Context, c Criteria, page int, token uint64) (State, error) {
	res, err := e.src.FilteredData(ctx, BuildQuery(c, page, e.perPage))

	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.token {
		zap.L().Debug("report: discarding superseded response", zap.Int("page", page))
		return e.state.clone(), ErrSuperseded
	}

	if err == nil && res == nil {
		err = eris.New("empty response")
	}
	if err != nil {
		fetchErr := &FetchError{Page: page, Err: err}
		zap.L().Warn("report: fetch failed", zap.Int("page", page), zap.Error(err))
		e.state = applyFailure(e.state, fetchErr)
		return e.state.clone(), fetchErr
	}

	e.state = applySuccess(e.state, res, page)
	return e.state.clone(), nil
}

// SortBy toggles client-side ordering on key. It never fetches.
func (e *Engine) SortBy(key string) SortState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = applySort(e.state, key)
	return e.state.Sort
}

// SetCriteria replaces the criteria and supersedes any outstanding request.
// The page cursor and rows are cleared, so NextPage does nothing until
// FetchPage loads the first page for c.
func (e *Engine) SetCriteria(c Criteria) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.token++
	e.criteria = c.Normalize()
	e.state = initialState(e.perPage)
}

// Reset returns the engine to Idle and supersedes any outstanding request.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.token++
	e.criteria = Criteria{}
	e.state = initialState(e.perPage)
}
