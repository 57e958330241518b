/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gemini-hlsw/ocs-sub028/internal"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord"
)

// Serve creates and returns the `serve` command.
func Serve() *cobra.Command {
	c := &ServeCommand{}
	result := &cobra.Command{
		Use:   "serve",
		Short: "Starts the dataset record service",
		Long: "Starts the dataset record service. The service watches the configured databases " +
			"for replaced programs and reports every dataset record change.",
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	datasetrecord.SetConfigFlags(result, &c.configPath)
	result.Flags().StringVar(
		&c.metricsAddress,
		datasetrecord.MetricsAddressFlagName,
		"",
		"Address of the metrics listener. Overrides the address of the configuration file.",
	)
	return result
}

// ServeCommand contains the data and logic needed to run the `serve` command.
type ServeCommand struct {
	configPath     string
	metricsAddress string
}

func (c *ServeCommand) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := internal.LoggerFromContext(ctx)

	config, err := datasetrecord.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed(datasetrecord.MetricsAddressFlagName) {
		config.MetricsAddress = c.metricsAddress
	}

	if err := datasetrecord.Serve(ctx, logger, config); err != nil {
		return fmt.Errorf("dataset record service failed: %w", err)
	}
	return nil
}
