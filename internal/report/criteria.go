// Package report implements the self-service report engine: it turns filter
// criteria into a paged query against the filtered-data endpoint, holds the
// current page, and re-sorts the loaded rows without refetching.
package report

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/salesdash/internal/model"
)

// Criteria holds the user-supplied filters. Empty fields are not sent.
type Criteria struct {
	CustomerID      string `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	City            string `json:"city,omitempty" yaml:"city,omitempty"`
	State           string `json:"state,omitempty" yaml:"state,omitempty"`
	StartDate       string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Category        string `json:"category,omitempty" yaml:"category,omitempty"`
	ProductName     string `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	StoreType       string `json:"store_type,omitempty" yaml:"store_type,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty" yaml:"payment_method,omitempty"`
	LoyaltyStatus   string `json:"loyalty_status,omitempty" yaml:"loyalty_status,omitempty"`
	MinAnnualIncome string `json:"min_annual_income,omitempty" yaml:"min_annual_income,omitempty"`
	MaxAnnualIncome string `json:"max_annual_income,omitempty" yaml:"max_annual_income,omitempty"`
}

// Query parameter names, in the order they are emitted.
const (
	ParamPage            = "page"
	ParamPerPage         = "per_page"
	ParamCustomerID      = "customer_id"
	ParamCity            = "city"
	ParamState           = "state"
	ParamStartDate       = "start_date"
	ParamEndDate         = "end_date"
	ParamCategory        = "category"
	ParamProductName     = "product_name"
	ParamStoreType       = "store_type"
	ParamPaymentMethod   = "payment_method"
	ParamLoyaltyStatus   = "loyalty_status"
	ParamMinAnnualIncome = "min_annual_income"
	ParamMaxAnnualIncome = "max_annual_income"
)

// Normalize returns a copy with every field whitespace-trimmed.
func (c Criteria) Normalize() Criteria {
	for _, f := range c.fields() {
		*f.ptr = strings.TrimSpace(*f.ptr)
	}
	return c
}

type criteriaField struct {
	key string
	ptr *string
}

// fields lists the filter fields in query order. Dates are a pair and are
// handled by BuildQuery.
func (c *Criteria) fields() []criteriaField {
	return []criteriaField{
		{ParamCustomerID, &c.CustomerID},
		{ParamCity, &c.City},
		{ParamState, &c.State},
		{ParamStartDate, &c.StartDate},
		{ParamEndDate, &c.EndDate},
		{ParamCategory, &c.Category},
		{ParamProductName, &c.ProductName},
		{ParamStoreType, &c.StoreType},
		{ParamPaymentMethod, &c.PaymentMethod},
		{ParamLoyaltyStatus, &c.LoyaltyStatus},
		{ParamMinAnnualIncome, &c.MinAnnualIncome},
		{ParamMaxAnnualIncome, &c.MaxAnnualIncome},
	}
}

// BuildQuery serializes criteria into an ordered query. page and per_page
// always lead; empty fields are omitted; the date range is included only when
// both ends are present.
func BuildQuery(c Criteria, page, perPage int) model.Query {
	c = c.Normalize()
	if page < 1 {
		page = 1
	}

	q := model.Query{
		{Key: ParamPage, Value: strconv.Itoa(page)},
		{Key: ParamPerPage, Value: strconv.Itoa(perPage)},
	}
	hasDates := c.StartDate != "" && c.EndDate != ""
	for _, f := range c.fields() {
		if *f.ptr == "" {
			continue
		}
		if (f.key == ParamStartDate || f.key == ParamEndDate) && !hasDates {
			continue
		}
		q = append(q, model.Param{Key: f.key, Value: *f.ptr})
	}
	return q
}

// CriteriaFromValues reads criteria from URL query values. Unknown keys are
// ignored.
func CriteriaFromValues(v url.Values) Criteria {
	var c Criteria
	for _, f := range c.fields() {
		*f.ptr = v.Get(f.key)
	}
	return c.Normalize()
}
