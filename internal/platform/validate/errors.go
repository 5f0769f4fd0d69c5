// Package validate carries the field-level validation rules applied to every
// registry submission. Rules are pure predicates; violations accumulate into
// an Errors list so the caller can report every problem at once instead of
// failing on the first.
package validate

import (
	"errors"
	"strings"
)

// Errors is an accumulating list of human-readable validation messages.
// The zero value is ready to use.
type Errors struct {
	msgs []string
}

func (e *Errors) Add(msg string) {
	e.msgs = append(e.msgs, msg)
}

// Merge appends another list's messages.
func (e *Errors) Merge(other *Errors) {
	if other != nil {
		e.msgs = append(e.msgs, other.msgs...)
	}
}

func (e *Errors) Empty() bool {
	return len(e.msgs) == 0
}

func (e *Errors) Messages() []string {
	return e.msgs
}

func (e *Errors) Error() string {
	return strings.Join(e.msgs, " ")
}

// Err returns the list as an error, or nil when no rule was violated.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

// AsErrors unwraps a validation error list from err, if it carries one.
func AsErrors(err error) (*Errors, bool) {
	var ve *Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
