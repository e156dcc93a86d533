package ledger

import (
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrors keys messages that concern the whole operation rather than
// a single field (cross-field totals, matching bounds).
const NonFieldErrors = "__all__"

// ValidationErrors maps a field name to its human-readable failure messages.
// All validation runs before any write; the caller gets every failure in one
// response so a human can fix everything at once.
type ValidationErrors map[string][]string

// Add appends a message under field.
func (ve ValidationErrors) Add(field, format string, args ...any) {
	ve[field] = append(ve[field], fmt.Sprintf(format, args...))
}

// Merge folds other's messages into ve.
func (ve ValidationErrors) Merge(other ValidationErrors) {
	for field, msgs := range other {
		ve[field] = append(ve[field], msgs...)
	}
}

// Any reports whether at least one message has been recorded.
func (ve ValidationErrors) Any() bool {
	return len(ve) > 0
}

// Error renders a stable, readable summary.
func (ve ValidationErrors) Error() string {
	fields := make([]string, 0, len(ve))
	for f := range ve {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(ve[f], "; "))
	}
	return strings.Join(parts, " | ")
}

// FieldError builds a single-field ValidationErrors.
func FieldError(field, format string, args ...any) ValidationErrors {
	ve := ValidationErrors{}
	ve.Add(field, format, args...)
	return ve
}
