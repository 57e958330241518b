/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gemini-hlsw/ocs-sub028/internal"
	"github.com/gemini-hlsw/ocs-sub028/internal/logging"
)

// Root creates and returns the root command with all the sub-commands added.
func Root() *cobra.Command {
	result := &cobra.Command{
		Use:               "dataset-records",
		Short:             "Keeps the dataset records of the observation logs up to date",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: configureLogger,
	}
	logging.AddFlags(result.PersistentFlags())
	result.AddCommand(Serve())
	result.AddCommand(Migrate())
	result.AddCommand(Get())
	result.AddCommand(Update())
	result.AddCommand(Version())
	return result
}

// configureLogger creates the logger from the command line flags, makes it the default one and
// puts it into the context of the command.
func configureLogger(cmd *cobra.Command, _ []string) error {
	logger, err := logging.NewLogger().
		SetFlags(cmd.Flags()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)
	cmd.SetContext(internal.LoggerIntoContext(cmd.Context(), logger))
	return nil
}
