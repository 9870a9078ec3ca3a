package errors

import (
	"errors"
	"strings"
)

type multiError []error

func (e multiError) Error() string {
	var r strings.Builder
	r.WriteString("multierr: ")
	for i, err := range e {
		if i > 0 {
			r.WriteString(" | ")
		}
		r.WriteString(err.Error())
	}
	return r.String()
}

// Unwrap returns all wrapped errors for errors.Is/As.
func (e multiError) Unwrap() []error {
	return []error(e)
}

// Combine combines multiple errors into one, dropping nils.
// Returns nil if all errors are nil and the error itself if only one is set.
func Combine(maybeError ...error) error {
	var errs multiError
	for _, err := range maybeError {
		if err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return errs
}

// AllEqual returns true if every error in actual matches expected.
func AllEqual(expected error, actual error) bool {
	switch errs := actual.(type) {
	case multiError:
		if len(errs) == 0 {
			return false
		}
		for _, err := range errs {
			if !errors.Is(err, expected) {
				return false
			}
		}
		return true
	default:
		return errors.Is(errs, expected)
	}
}
