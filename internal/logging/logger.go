/*
Copyright 2023 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in
compliance with the License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is
distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
implied. See the License for the specific language governing permissions and limitations under the
License.
*/

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// LoggerBuilder contains the data and logic needed to create a logger. Don't create instances of
// this directly, use the NewLogger function instead.
type LoggerBuilder struct {
	writer io.Writer
	level  string
	file   string
	fields map[string]any
	redact bool
}

// NewLogger creates a builder that can then be used to configure and create a logger.
func NewLogger() *LoggerBuilder {
	return &LoggerBuilder{
		fields: map[string]any{},
		redact: true,
	}
}

// SetWriter sets the writer that the logger will write to. This is optional, and when specified
// it takes precedence over the log file.
func (b *LoggerBuilder) SetWriter(value io.Writer) *LoggerBuilder {
	b.writer = value
	return b
}

// SetFile sets the file that the logger will write to. The values 'stdout' and 'stderr' select
// the standard streams of the process. The default is 'stdout'.
func (b *LoggerBuilder) SetFile(value string) *LoggerBuilder {
	b.file = value
	return b
}

// SetLevel sets the log level. Valid values are the ones accepted by slog.Level, for example
// 'debug' or 'warn'.
func (b *LoggerBuilder) SetLevel(value string) *LoggerBuilder {
	b.level = value
	return b
}

// AddField adds a field that will be added to all the log messages. The value '%p' is replaced by
// the process identifier.
func (b *LoggerBuilder) AddField(name string, value any) *LoggerBuilder {
	b.fields[name] = value
	return b
}

// AddFields adds a set of fields that will be added to all the log messages.
func (b *LoggerBuilder) AddFields(values map[string]any) *LoggerBuilder {
	maps.Copy(b.fields, values)
	return b
}

// SetRedact sets the flag that indicates if security sensitive data should be removed from the
// log. These fields are indicated by adding an exclamation mark in front of the field name:
//
//	logger.Info(
//		"Connecting to replica",
//		"user", user,
//		"!password", password,
//	)
//
// When redacting is enabled the value of the sensitive field is replaced by `***`. The
// exclamation mark is always removed from the field name.
func (b *LoggerBuilder) SetRedact(value bool) *LoggerBuilder {
	b.redact = value
	return b
}

// SetFlags sets the command line flags that should be used to configure the logger. Only the
// flags that were explicitly changed are used.
func (b *LoggerBuilder) SetFlags(flags *pflag.FlagSet) *LoggerBuilder {
	if flags == nil {
		return b
	}
	if flags.Changed(levelFlagName) {
		if value, err := flags.GetString(levelFlagName); err == nil {
			b.SetLevel(value)
		}
	}
	if flags.Changed(fileFlagName) {
		if value, err := flags.GetString(fileFlagName); err == nil {
			b.SetFile(value)
		}
	}
	if flags.Changed(fieldFlagName) {
		if values, err := flags.GetStringArray(fieldFlagName); err == nil {
			b.AddFields(parseFieldItems(values))
		}
	}
	if flags.Changed(fieldsFlagName) {
		if values, err := flags.GetStringSlice(fieldsFlagName); err == nil {
			b.AddFields(parseFieldItems(values))
		}
	}
	if flags.Changed(redactFlagName) {
		if value, err := flags.GetBool(redactFlagName); err == nil {
			b.SetRedact(value)
		}
	}
	return b
}

func parseFieldItems(items []string) map[string]any {
	fields := map[string]any{}
	for _, item := range items {
		if item == pidLogFieldValue {
			fields[pidLogFieldName] = pidLogFieldValue
			continue
		}
		name, value, _ := strings.Cut(item, "=")
		fields[strings.TrimSpace(name)] = value
	}
	return fields
}

// Build uses the data stored in the buider to create a new logger. The handler writes JSON and
// adds the attributes stored in the context with AppendCtx.
func (b *LoggerBuilder) Build() (*slog.Logger, error) {
	level := slog.LevelInfo
	if b.level != "" {
		if err := level.UnmarshalText([]byte(b.level)); err != nil {
			return nil, fmt.Errorf("invalid log level '%s': %w", b.level, err)
		}
	}

	writer := b.writer
	if writer == nil {
		var err error
		writer, err = openWriter(b.file)
		if err != nil {
			return nil, err
		}
	}

	redactor := preserveRedacted
	if b.redact {
		redactor = replaceRedacted
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return redactor(replaceTime(a))
		},
	})

	fields := make([]any, 0, 2*len(b.fields))
	for _, name := range slices.Sorted(maps.Keys(b.fields)) {
		value := b.fields[name]
		if value == pidLogFieldValue {
			value = os.Getpid()
		}
		fields = append(fields, name, value)
	}

	return slog.New(NewLoggingContextHandler(handler)).With(fields...), nil
}

func openWriter(file string) (io.Writer, error) {
	switch file {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	writer, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0660)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", file, err)
	}
	return writer, nil
}

func replaceTime(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindTime {
		a = slog.String(a.Key, a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}

func replaceRedacted(a slog.Attr) slog.Attr {
	if strings.HasPrefix(a.Key, "!") {
		a = slog.String(a.Key[1:], "***")
	}
	return a
}

func preserveRedacted(a slog.Attr) slog.Attr {
	a.Key = strings.TrimPrefix(a.Key, "!")
	return a
}

// Values of log fields with special meanings. For example '%p' will be replaced with the identifier
// of the process.
const (
	pidLogFieldName  = "pid"
	pidLogFieldValue = "%p"
)
