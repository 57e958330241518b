/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package exit

import "fmt"

// Error is an error type that contains a process exit code. Commands return it when the outcome
// they need to report is not a failure, so that os.Exit is only called from main.
type Error int

const (
	// Failure is the code used for any error that doesn't carry its own code.
	Failure Error = 1

	// NoChange is returned by the update command when no record was modified.
	NoChange Error = 3
)

// Error is the implementation of the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("exit code %d", int(e))
}

// Code returns the exit code.
func (e Error) Code() int {
	return int(e)
}
