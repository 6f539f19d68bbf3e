package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/declarative-go/declarative/naming"
)

// Validator validates one candidate value for a column. Implementations
// return an *Error on failure and nil otherwise.
type Validator interface {
	Validate(value interface{}) error
}

// MessageProvider is implemented by validators that customize the message of
// the errors they raise.
type MessageProvider interface {
	Message(e *Error) string
}

// Func adapts a plain function to the Validator interface.
type Func func(value interface{}) error

// Validate implements Validator.
func (f Func) Validate(value interface{}) error {
	return f(value)
}

// Error holds a validation failure for a single column of a model.
type Error struct {
	Msg       string
	Model     string
	Column    string
	Validator Validator
}

func (e *Error) Error() string {
	if mp, ok := e.Validator.(MessageProvider); ok {
		return mp.Message(e)
	}
	return e.Msg
}

// Errors holds validation failures for an entire model, keyed by column name.
type Errors struct {
	Errors map[string][]string
}

func (e *Errors) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+strings.Join(e.Errors[k], "; "))
	}
	return strings.Join(lines, "\n")
}

// Add records a failure message for a column.
func (e *Errors) Add(column, msg string) {
	if e.Errors == nil {
		e.Errors = map[string][]string{}
	}
	e.Errors[column] = append(e.Errors[column], msg)
}

// Any reports whether any failure was recorded.
func (e *Errors) Any() bool {
	return len(e.Errors) > 0
}

// BaseValidator carries an optional custom message. Embed it to write
// validators with overridable messages:
//
//	type NameRequired struct {
//		validation.BaseValidator
//	}
//
//	func (v NameRequired) Validate(value interface{}) error {
//		if value == nil {
//			return &validation.Error{Validator: v}
//		}
//		return nil
//	}
type BaseValidator struct {
	Msg string
}

// Message implements MessageProvider.
func (v BaseValidator) Message(e *Error) string {
	if v.Msg != "" {
		return v.Msg
	}
	return e.Msg
}

// Required fails on nil values and empty strings. It is attached implicitly
// to every non-nullable, non-primary-key column without a default.
type Required struct {
	BaseValidator
}

// Validate implements Validator.
func (v Required) Validate(value interface{}) error {
	if value == nil {
		return &Error{Validator: v}
	}
	if s, ok := value.(string); ok && s == "" {
		return &Error{Validator: v}
	}
	return nil
}

// Message implements MessageProvider.
func (v Required) Message(e *Error) string {
	if v.Msg != "" {
		return v.Msg
	}
	return fmt.Sprintf("%s is required.", naming.TitleCase(e.Column))
}
