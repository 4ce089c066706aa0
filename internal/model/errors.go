package model

import "fmt"

// InvalidInputError indicates a request that fails validation before any
// lookup: negative household counts, malformed geography ids, and the like.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// UnknownTenureError indicates a tenure key outside the three canonical values.
type UnknownTenureError struct {
	Tenure string
}

func (e *UnknownTenureError) Error() string {
	return fmt.Sprintf("unknown tenure %q", e.Tenure)
}

// GeographyTypeError indicates a geography level outside the supported set.
type GeographyTypeError struct {
	Type string
}

func (e *GeographyTypeError) Error() string {
	return fmt.Sprintf("unsupported geography type %q", e.Type)
}

// GeographyNotFoundError indicates a geography id absent from the resolved
// rent table for its level and year. The engine surfaces this to the caller;
// it never substitutes a default adjustment.
type GeographyNotFoundError struct {
	Type GeographyType
	ID   string
	Year int
}

func (e *GeographyNotFoundError) Error() string {
	return fmt.Sprintf("geography %s %q not found in %d rent table", e.Type, e.ID, e.Year)
}

// DataUnavailableError indicates that no published or derivable base
// threshold exists for the requested year.
type DataUnavailableError struct {
	Year   int
	Reason string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("no threshold data for year %d: %s", e.Year, e.Reason)
}
