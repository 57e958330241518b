/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gemini-hlsw/ocs-sub028/internal/cmd"
	"github.com/gemini-hlsw/ocs-sub028/internal/exit"
)

func main() {
	// Create a context:
	ctx := context.Background()

	// Run the tool:
	err := cmd.Root().ExecuteContext(ctx)
	if err != nil {
		var exitError exit.Error
		ok := errors.As(err, &exitError)
		if ok {
			os.Exit(exitError.Code())
		} else {
			fmt.Fprintf(os.Stderr, "%s\n", err.Error())
			os.Exit(int(exit.Failure))
		}
	}
}
