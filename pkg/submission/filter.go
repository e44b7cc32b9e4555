package submission

import "strings"

// Status filter values accepted from the page query string.
const (
	FilterAll      = "All"
	FilterApproved = "Approved"
	FilterPending  = "Pending"
	FilterRejected = "Rejected"
)

// Filter selects a subset of submissions on the server side.
type Filter struct {
	// Status is one of the Filter* constants. Empty means FilterAll.
	Status string

	// EventCode restricts results to one event. Empty means any event.
	EventCode string
}

// ParseStatusFilter maps a query value to a status filter.
// Unknown values (including differently cased ones) select FilterAll.
func ParseStatusFilter(v string) string {
	switch v {
	case FilterAll, FilterApproved, FilterPending, FilterRejected:
		return v
	default:
		return FilterAll
	}
}

// Formula renders the filterByFormula expression for f.
//
// Examples:
//
//	AND()
//	AND({Status} = 'Approved')
//	AND({Status} = 'Approved',{Event Code} = 'XYZ')
func (f Filter) Formula() string {
	var clauses []string
	if status := ParseStatusFilter(f.Status); f.Status != "" && status != FilterAll {
		clauses = append(clauses, "{Status} = '"+quoteFormula(status)+"'")
	}
	if code := strings.TrimSpace(f.EventCode); code != "" {
		clauses = append(clauses, "{Event Code} = '"+quoteFormula(code)+"'")
	}
	return "AND(" + strings.Join(clauses, ",") + ")"
}

var formulaEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quoteFormula escapes a value for use inside a single-quoted formula string.
func quoteFormula(v string) string {
	return formulaEscaper.Replace(v)
}
