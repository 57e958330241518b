/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/cobra"

	"github.com/gemini-hlsw/ocs-sub028/internal"
)

// Version creates and returns the `version` command.
func Version() *cobra.Command {
	c := NewVersionCommand()
	return &cobra.Command{
		Use:   "version",
		Short: "Prints version information",
		Long:  "Prints version information",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
}

// VersionCommand contains the data and logic needed to run the `version` command.
type VersionCommand struct {
}

// NewVersionCommand creates a new runner that knows how to execute the `version` command.
func NewVersionCommand() *VersionCommand {
	return &VersionCommand{}
}

// run executes the `version` command.
func (c *VersionCommand) run(cmd *cobra.Command, argv []string) error {
	ctx := cmd.Context()
	logger := internal.LoggerFromContext(ctx)

	// Calculate the values:
	buildVersion := unknownSettingValue
	buildCommit := unknownSettingValue
	buildTime := unknownSettingValue
	info, ok := debug.ReadBuildInfo()
	if ok {
		if version := c.parseVersion(info.Main.Version); version != nil {
			buildVersion = version.String()
		}
		vcsRevision := c.getSetting(info, vcsRevisionSettingKey)
		if vcsRevision != "" {
			buildCommit = vcsRevision
		}
		vcsTime := c.getSetting(info, vcsTimeSettingKey)
		if vcsTime != "" {
			buildTime = vcsTime
		}
	}

	logger.DebugContext(
		ctx,
		"Version",
		slog.String("version", buildVersion),
		slog.String("commit", buildCommit),
		slog.String("time", buildTime),
	)

	// Print the values:
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "version: %s\ncommit: %s\ntime: %s\n",
		buildVersion, buildCommit, buildTime)
	if err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	return nil
}

// parseVersion returns the semantic version of the main module, or nil for development builds.
func (c *VersionCommand) parseVersion(value string) *semver.Version {
	version, err := semver.NewVersion(strings.TrimPrefix(value, "v"))
	if err != nil {
		return nil
	}
	return version
}

// getSetting returns the value of the build setting with the given key. Returns an empty string
// if no such setting exists.
func (c *VersionCommand) getSetting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// Names of build settings we are interested on:
const (
	vcsRevisionSettingKey = "vcs.revision"
	vcsTimeSettingKey     = "vcs.time"
)

// Fallback value for unknown settings:
const unknownSettingValue = "unknown"
