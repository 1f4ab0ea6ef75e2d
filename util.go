package mkboot

import (
	"errors"

	"github.com/hashicorp/errwrap"
)

// eMsg pairs an error with a short description of the step that failed.
// The pair is recovered with GetErrors.
func eMsg(err error, msg string) error {
	return errwrap.Wrap(errors.New(msg), err)
}

// GetErrors returns the step description and cause from one error. For
// errors that were not built by eMsg it returns the plain message alone.
func GetErrors(err error) []string {
	if err != nil {
		if wrapped, ok := err.(errwrap.Wrapper); ok {
			if errs := wrapped.WrappedErrors(); len(errs) >= 2 {
				return []string{errs[0].Error(), errs[1].Error()}
			}
		}

		return []string{err.Error()}
	}

	return []string{}
}
