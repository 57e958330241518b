/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord"
)

// Migrate creates and returns the `migrate` command.
func Migrate() *cobra.Command {
	var configPath string
	result := &cobra.Command{
		Use:   "migrate",
		Short: "Run migrations all the way up",
		Long:  "Creates or upgrades the schema of every configured database. Run this before the service starts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := datasetrecord.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := datasetrecord.Migrate(cmd.Context(), config); err != nil {
				return fmt.Errorf("failed to do migration: %w", err)
			}
			return nil
		},
	}
	datasetrecord.SetConfigFlags(result, &configPath)
	return result
}
