// Package dashapi is a client for the dashboard's data collaborators: the
// filtered-data and city endpoints and the store analysis endpoint.
package dashapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/salesdash/internal/fetcher"
	"github.com/sells-group/salesdash/internal/model"
	"github.com/sells-group/salesdash/internal/resilience"
)

// Client defines the dashboard data operations.
type Client interface {
	// FilteredData fetches one page of filtered rows. It makes exactly one
	// attempt; callers decide whether to ask again.
	FilteredData(ctx context.Context, q model.Query) (*model.ResultPage, error)
	// Cities lists the cities available as filter values.
	Cities(ctx context.Context) ([]string, error)
	// StoreAnalysis returns physical stores and tiered expansion candidates.
	StoreAnalysis(ctx context.Context) (*model.StoreData, error)
}

// AnalysisError is returned when the store analysis endpoint answers with
// status "error".
type AnalysisError struct {
	Message string
}

func (e *AnalysisError) Error() string {
	return "dashapi: store analysis failed: " + e.Message
}

type storeAnalysisResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    *model.StoreData `json:"data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithFetcher sets the underlying fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *httpClient) {
		c.fetcher = f
	}
}

// WithRetry sets the retry policy for the city and store analysis calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	filterBaseURL string
	storesBaseURL string
	fetcher       fetcher.Fetcher
	retry         resilience.RetryConfig
}

// NewClient creates a dashboard data client.
func NewClient(filterBaseURL, storesBaseURL string, opts ...Option) Client {
	c := &httpClient{
		filterBaseURL: strings.TrimRight(filterBaseURL, "/"),
		storesBaseURL: strings.TrimRight(storesBaseURL, "/"),
		fetcher:       fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}),
		retry:         resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FilteredData(ctx context.Context, q model.Query) (*model.ResultPage, error) {
	reqURL := c.filterBaseURL + "/api/get_filtered_data"
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	body, err := c.fetcher.Download(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "dashapi: filtered data")
	}
	defer body.Close() //nolint:errcheck

	page, err := fetcher.DecodeJSONObject[model.ResultPage](body)
	if err != nil {
		return nil, eris.Wrap(err, "dashapi: decode filtered data")
	}
	if page.Rows == nil {
		page.Rows = []model.Row{}
	}
	return page, nil
}

func (c *httpClient) Cities(ctx context.Context) ([]string, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("dashapi", "cities")

	cities, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]string, error) {
		body, err := c.fetcher.Download(ctx, c.filterBaseURL+"/api/get_cities")
		if err != nil {
			return nil, err
		}
		defer body.Close() //nolint:errcheck
		return fetcher.CollectJSONArray[string](ctx, body)
	})
	if err != nil {
		return nil, eris.Wrap(err, "dashapi: cities")
	}
	return cities, nil
}

func (c *httpClient) StoreAnalysis(ctx context.Context) (*model.StoreData, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("dashapi", "analyze_stores")
	cfg.ShouldRetry = func(err error) bool {
		var analysisErr *AnalysisError
		return !errors.As(err, &analysisErr) && resilience.IsTransient(err)
	}

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*storeAnalysisResponse, error) {
		body, err := c.fetcher.Download(ctx, c.storesBaseURL+"/api/analyze_stores")
		if err != nil {
			return nil, analysisErrorFrom(err)
		}
		defer body.Close() //nolint:errcheck
		return decodeStoreAnalysis(body)
	})
	if err != nil {
		var analysisErr *AnalysisError
		if errors.As(err, &analysisErr) {
			return nil, analysisErr
		}
		return nil, eris.Wrap(err, "dashapi: store analysis")
	}

	if resp.Status == "error" {
		return nil, &AnalysisError{Message: resp.Message}
	}
	if resp.Data == nil {
		return nil, eris.Errorf("dashapi: store analysis returned status %q without data", resp.Status)
	}
	return resp.Data, nil
}

func decodeStoreAnalysis(r io.Reader) (*storeAnalysisResponse, error) {
	resp, err := fetcher.DecodeJSONObject[storeAnalysisResponse](r)
	if err != nil {
		return nil, eris.Wrap(err, "dashapi: decode store analysis")
	}
	return resp, nil
}

// analysisErrorFrom turns a non-2xx response carrying a
// {"status":"error","message":...} body into an AnalysisError.
func analysisErrorFrom(err error) error {
	var statusErr *fetcher.StatusError
	if !errors.As(err, &statusErr) || len(statusErr.Body) == 0 {
		return err
	}
	resp, decodeErr := decodeStoreAnalysis(bytes.NewReader(statusErr.Body))
	if decodeErr != nil || resp.Status != "error" || resp.Message == "" {
		return err
	}
	return &AnalysisError{Message: resp.Message}
}
