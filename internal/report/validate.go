package report

import (
	"strconv"
	"strings"
)

// ValidateIncomeRange checks an income range. Either bound may be empty.
// When both are present they must be numbers with min <= max.
func ValidateIncomeRange(minIncome, maxIncome string) error {
	minIncome, maxIncome = strings.TrimSpace(minIncome), strings.TrimSpace(maxIncome)
	if minIncome == "" || maxIncome == "" {
		return nil
	}

	lo, err := strconv.ParseFloat(minIncome, 64)
	if err != nil {
		return &ValidationError{Field: ParamMinAnnualIncome, Message: "not a number: " + strconv.Quote(minIncome)}
	}
	hi, err := strconv.ParseFloat(maxIncome, 64)
	if err != nil {
		return &ValidationError{Field: ParamMaxAnnualIncome, Message: "not a number: " + strconv.Quote(maxIncome)}
	}
	if lo > hi {
		return &ValidationError{Field: "annual_income", Message: IncomeRangeNotice}
	}
	return nil
}
