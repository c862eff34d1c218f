package trigger

import "fmt"

// PatternError describes a trigger definition that could not be compiled.
// A RuleSet keeps serving its other rules when one of them fails.
type PatternError struct {
	Index   int    // 0-based position in the definition list
	Name    string // Trigger name (may be empty)
	Field   string
	Message string
	Cause   error // Underlying error (e.g., regexp syntax error)
}

func (e *PatternError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("trigger %q: %s: %s", e.Name, e.Field, e.Message)
	}
	return fmt.Sprintf("trigger[%d]: %s: %s", e.Index, e.Field, e.Message)
}

// Unwrap returns the underlying cause so errors.Is and errors.As see it.
func (e *PatternError) Unwrap() error {
	return e.Cause
}
