// Package model defines the domain types shared across the threshold engine:
// housing tenure, geography levels, rent tables, and threshold results.
package model

// Tenure represents the housing-occupancy category of an SPM unit.
type Tenure string

const (
	TenureRenter               Tenure = "renter"
	TenureOwnerWithMortgage    Tenure = "owner_with_mortgage"
	TenureOwnerWithoutMortgage Tenure = "owner_without_mortgage"
)

// AllTenures returns the three canonical tenure categories in publication order.
func AllTenures() []Tenure {
	return []Tenure{TenureRenter, TenureOwnerWithMortgage, TenureOwnerWithoutMortgage}
}

// Valid reports whether t is one of the three canonical tenure categories.
func (t Tenure) Valid() bool {
	switch t {
	case TenureRenter, TenureOwnerWithMortgage, TenureOwnerWithoutMortgage:
		return true
	}
	return false
}

// ParseTenure converts a string into a Tenure, failing with an
// UnknownTenureError for anything outside the closed set.
func ParseTenure(s string) (Tenure, error) {
	t := Tenure(s)
	if !t.Valid() {
		return "", &UnknownTenureError{Tenure: s}
	}
	return t, nil
}
