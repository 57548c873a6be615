package config

import "fmt"

// ValidationError reports a single missing or malformed configuration field.
// It is modeled on the teacher's ConfigurationError, trimmed to the much
// smaller surface of this proxy: one environment, no per-category YAML
// sources, no line numbers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every field failure found during Load, so a user
// fixing configuration sees all of the problems in one pass instead of one
// per invocation.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d configuration errors:", len(e.Errors))
	for _, ve := range e.Errors {
		msg += fmt.Sprintf("\n  - %s", ve.Error())
	}
	return msg
}

func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}
