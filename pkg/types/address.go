package types

import "strings"

// Address is the shipping address snapshot stored with an order.
type Address struct {
	Name       string  `json:"name" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country,omitempty"`
}

// NormalizePostalCode trims and case-folds a postal code for comparisons.
func NormalizePostalCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// NormalizedPostalCode returns the comparison form of the postal code.
func (a Address) NormalizedPostalCode() string {
	return NormalizePostalCode(a.PostalCode)
}

// WithDefaults fills the country when a caller omitted it.
func (a Address) WithDefaults() Address {
	if strings.TrimSpace(a.Country) == "" {
		a.Country = "IN"
	}
	return a
}
