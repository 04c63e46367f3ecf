package models

import "encoding/json"

// Severity is the weight of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one discrepancy between a document's fields and its template's slots
type Issue struct {
	FieldName string   `json:"field_name" yaml:"field_name"`
	Message   string   `json:"message" yaml:"message"`
	Severity  Severity `json:"severity" yaml:"severity"`
}

// Result aggregates the issues found while validating a document against a
// template. Validity is derived from the issue lists and never stored, so it
// cannot drift out of sync with them.
type Result struct {
	Missing  []Issue `json:"missing" yaml:"missing"`
	Errors   []Issue `json:"errors" yaml:"errors"`
	Warnings []Issue `json:"warnings" yaml:"warnings"`
}

// Valid reports whether the document passed validation. Missing required
// slots and errors invalidate a document; warnings never do.
func (r *Result) Valid() bool {
	return len(r.Missing) == 0 && len(r.Errors) == 0
}

// AllIssues returns every issue in a single list for unified rendering
func (r *Result) AllIssues() []Issue {
	issues := make([]Issue, 0, len(r.Missing)+len(r.Errors)+len(r.Warnings))
	issues = append(issues, r.Missing...)
	issues = append(issues, r.Errors...)
	issues = append(issues, r.Warnings...)
	return issues
}

// MissingFieldNames returns the names of all missing required slots
func (r *Result) MissingFieldNames() []string {
	names := make([]string, 0, len(r.Missing))
	for _, issue := range r.Missing {
		names = append(names, issue.FieldName)
	}
	return names
}

// MarshalJSON includes the derived valid flag so API and CLI consumers see
// the verdict without recomputing it
func (r *Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		Valid bool `json:"valid"`
		*alias
	}{
		Valid: r.Valid(),
		alias: (*alias)(r),
	})
}
