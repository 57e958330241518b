/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package typederrors

import (
	"errors"
	"fmt"
)

// GenericError is an error structure containing common fields to be
// embedded by specific error types defined below
type GenericError struct {
	Message string
	Err     error
}

func (ge GenericError) Error() string {
	return ge.Message
}

func (ge GenericError) Unwrap() error {
	return ge.Err
}

// NotFoundError is returned by a replica that does not host the requested record or observation
type NotFoundError struct {
	GenericError
}

func NewNotFoundError(err error, format string, args ...interface{}) error {
	return NotFoundError{
		GenericError: GenericError{fmt.Sprintf(format, args...), err},
	}
}

func IsNotFoundError(target error) bool {
	var e NotFoundError
	return errors.As(target, &e)
}

// AuthError is returned by a replica that refused the caller's credentials
type AuthError struct {
	GenericError
}

func NewAuthError(err error, format string, args ...interface{}) error {
	return AuthError{
		GenericError: GenericError{fmt.Sprintf(format, args...), err},
	}
}

func IsAuthError(target error) bool {
	var e AuthError
	return errors.As(target, &e)
}

// UnavailableError is returned when a replica or the service itself cannot be reached
type UnavailableError struct {
	GenericError
}

func NewUnavailableError(err error, format string, args ...interface{}) error {
	return UnavailableError{
		GenericError: GenericError{fmt.Sprintf(format, args...), err},
	}
}

func IsUnavailableError(target error) bool {
	var e UnavailableError
	return errors.As(target, &e)
}

// InvariantError reports a request that can never succeed, such as a creation descriptor whose
// label differs from the label being updated.
type InvariantError struct {
	GenericError
}

func NewInvariantError(err error, format string, args ...interface{}) error {
	return InvariantError{
		GenericError: GenericError{fmt.Sprintf(format, args...), err},
	}
}

func IsInvariantError(target error) bool {
	var e InvariantError
	return errors.As(target, &e)
}

// InputError wraps a standard error and provides a custom error type for input-related errors
type InputError struct {
	err error
}

func (i *InputError) Error() string {
	return i.err.Error()
}

func NewInputError(format string, args ...interface{}) *InputError {
	return &InputError{
		err: fmt.Errorf(format, args...),
	}
}

func IsInputError(err error) bool {
	var inputErr *InputError

	return errors.As(err, &inputErr)
}
