/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gemini-hlsw/ocs-sub028/internal/exit"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/engine"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// Names of the flags:
const (
	labelFlagName     = "label"
	filenameFlagName  = "filename"
	timestampFlagName = "timestamp"

	qaFlagName            = "qa"
	fileStateFlagName     = "file-state"
	dataflowStateFlagName = "dataflow-state"
	syncTimeFlagName      = "sync-time"

	preconditionPrefix = "if-"
)

// Get creates and returns the `get` command.
func Get() *cobra.Command {
	c := &GetCommand{}
	result := &cobra.Command{
		Use:   "get",
		Short: "Prints a dataset record",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	datasetrecord.SetConfigFlags(result, &c.configPath)
	result.Flags().StringVar(&c.label, labelFlagName, "", "Label of the dataset, for example 'GS-2024A-Q-1-3-5'.")
	_ = result.MarkFlagRequired(labelFlagName)
	return result
}

// GetCommand contains the data and logic needed to run the `get` command.
type GetCommand struct {
	configPath string
	label      string
}

func (c *GetCommand) run(cmd *cobra.Command, _ []string) error {
	label, err := models.ParseRecordLabel(c.label)
	if err != nil {
		return typederrors.NewInputError("invalid --%s: %v", labelFlagName, err)
	}
	return withService(cmd.Context(), c.configPath, func(ctx context.Context, service *datasetrecord.Service) error {
		record, err := service.FetchRecord(ctx, label)
		if err != nil {
			return fmt.Errorf("failed to fetch record %s: %w", label, err)
		}
		if record == nil {
			return typederrors.NewNotFoundError(nil, "record %s not found", label)
		}
		return writeRecord(cmd.OutOrStdout(), record)
	})
}

// Update creates and returns the `update` command.
func Update() *cobra.Command {
	c := &UpdateCommand{}
	result := &cobra.Command{
		Use:   "update",
		Short: "Updates a dataset record",
		Long: "Updates a dataset record and prints the result. The '--if-*' flags give the values " +
			"that the record must have for the update to apply. When the update doesn't apply the " +
			"command exits with code 3.",
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	flags := result.Flags()
	datasetrecord.SetConfigFlags(result, &c.configPath)
	flags.StringVar(&c.label, labelFlagName, "", "Label of the dataset, for example 'GS-2024A-Q-1-3-5'.")
	flags.StringVar(&c.filename, filenameFlagName, "",
		"File name of the dataset. When given the record is created if no database has it.")
	flags.StringVar(&c.timestamp, timestampFlagName, "",
		"Time the dataset was taken, in RFC 3339 format. Defaults to the current time.")
	c.update.add(flags, "", "New")
	c.precondition.add(flags, preconditionPrefix, "Required")
	_ = result.MarkFlagRequired(labelFlagName)
	return result
}

// UpdateCommand contains the data and logic needed to run the `update` command.
type UpdateCommand struct {
	configPath   string
	label        string
	filename     string
	timestamp    string
	update       templateFlags
	precondition templateFlags
}

func (c *UpdateCommand) run(cmd *cobra.Command, _ []string) error {
	req, err := c.request()
	if err != nil {
		return err
	}
	return withService(cmd.Context(), c.configPath, func(ctx context.Context, service *datasetrecord.Service) error {
		record, err := service.UpdateRecord(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to update record %s: %w", req.Label, err)
		}
		if record == nil {
			return exit.NoChange
		}
		return writeRecord(cmd.OutOrStdout(), record)
	})
}

// request converts the flags into an update request
func (c *UpdateCommand) request() (engine.Request, error) {
	var req engine.Request
	label, err := models.ParseRecordLabel(c.label)
	if err != nil {
		return req, typederrors.NewInputError("invalid --%s: %v", labelFlagName, err)
	}
	req.Label = label

	req.Update, err = c.update.template("")
	if err != nil {
		return req, err
	}
	if req.Update.IsEmpty() {
		return req, typederrors.NewInputError("at least one of --%s, --%s, --%s or --%s is required",
			qaFlagName, fileStateFlagName, dataflowStateFlagName, syncTimeFlagName)
	}

	precondition, err := c.precondition.template(preconditionPrefix)
	if err != nil {
		return req, err
	}
	if !precondition.IsEmpty() {
		req.Precondition = &precondition
	}

	if c.filename != "" {
		timestamp := time.Now().UTC()
		if c.timestamp != "" {
			timestamp, err = time.Parse(time.RFC3339, c.timestamp)
			if err != nil {
				return req, typederrors.NewInputError("invalid --%s: %v", timestampFlagName, err)
			}
		}
		req.Create = &models.Dataset{
			Label:     label,
			Filename:  c.filename,
			Timestamp: timestamp,
		}
	} else if c.timestamp != "" {
		return req, typederrors.NewInputError("--%s requires --%s", timestampFlagName, filenameFlagName)
	}
	return req, nil
}

// templateFlags holds the raw values of the flags that describe an update template. Empty values
// are left out of the template.
type templateFlags struct {
	qa            string
	fileState     string
	dataflowState string
	syncTime      string
}

func (f *templateFlags) add(set *pflag.FlagSet, prefix, what string) {
	set.StringVar(&f.qa, prefix+qaFlagName, "", what+" QA state.")
	set.StringVar(&f.fileState, prefix+fileStateFlagName, "", what+" file state.")
	set.StringVar(&f.dataflowState, prefix+dataflowStateFlagName, "", what+" dataflow state.")
	set.StringVar(&f.syncTime, prefix+syncTimeFlagName, "", what+" synchronization time, in RFC 3339 format.")
}

func (f *templateFlags) template(prefix string) (models.UpdateTemplate, error) {
	var result models.UpdateTemplate
	if f.qa != "" {
		value, err := models.ParseQAState(f.qa)
		if err != nil {
			return result, typederrors.NewInputError("invalid --%s%s: %v", prefix, qaFlagName, err)
		}
		result = result.WithQAState(value)
	}
	if f.fileState != "" {
		value, err := models.ParseFileState(f.fileState)
		if err != nil {
			return result, typederrors.NewInputError("invalid --%s%s: %v", prefix, fileStateFlagName, err)
		}
		result = result.WithFileState(value)
	}
	if f.dataflowState != "" {
		value, err := models.ParseDataflowState(f.dataflowState)
		if err != nil {
			return result, typederrors.NewInputError("invalid --%s%s: %v", prefix, dataflowStateFlagName, err)
		}
		result = result.WithDataflowState(value)
	}
	if f.syncTime != "" {
		value, err := time.Parse(time.RFC3339, f.syncTime)
		if err != nil {
			return result, typederrors.NewInputError("invalid --%s%s: %v", prefix, syncTimeFlagName, err)
		}
		result = result.WithSyncTime(value)
	}
	return result, nil
}

// withService connects to the configured databases, runs the given function with a started
// service and then releases everything.
func withService(ctx context.Context, configPath string,
	fn func(ctx context.Context, service *datasetrecord.Service) error) error {
	config, err := datasetrecord.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	conn, err := datasetrecord.Connect(ctx, config, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	service := conn.Service
	service.Start(ctx)
	defer func() {
		service.Stop()
		service.Wait()
	}()
	return fn(ctx, service)
}

func writeRecord(w io.Writer, record *models.DatasetRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
