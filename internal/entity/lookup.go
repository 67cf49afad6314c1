package entity

// LookupOutcome is the result of querying the store for one identifier.
// Err is set when the query failed; otherwise Matches holds the rows found (possibly none).
type LookupOutcome struct {
	Identifier string
	Matches    []Association
	Err        error
}

// Found reports whether the query succeeded with at least one match.
func (o LookupOutcome) Found() bool {
	return o.Err == nil && len(o.Matches) > 0
}
