/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package datasetrecord

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/db"
)

const (
	ConfigFlagName         = "config"
	MetricsAddressFlagName = "metrics-address"
)

const (
	defaultPort            = 5432
	defaultCatchUpInterval = 30 * time.Second
)

// DatabaseConfig describes one replica
type DatabaseConfig struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// Credentials are shared by all the replicas and are only read from the environment
type Credentials struct {
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
}

// TLSConfig names the PEM files of a TLS listener
type TLSConfig struct {
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

// Config is the configuration of the dataset record service
type Config struct {
	Databases       []DatabaseConfig `yaml:"databases"`
	CatchUpInterval time.Duration    `yaml:"catchUpInterval"`
	MetricsAddress  string           `yaml:"metricsAddress"`
	MetricsTLS      TLSConfig        `yaml:"metricsTLS"`
	Credentials     Credentials      `yaml:"-"`
}

// SetConfigFlags creates the flag used to select the configuration file
func SetConfigFlags(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(
		path,
		ConfigFlagName,
		"/etc/dataset-records/config.yaml",
		"Path of the configuration file",
	)
}

// LoadConfig reads the configuration file and the credentials from the environment. The result
// is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file '%s': %w", path, err)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file '%s': %w", path, err)
	}
	if err := config.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration file '%s': %w", path, err)
	}
	return config, nil
}

// ParseConfig decodes the YAML form of the configuration and fills in the defaults
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err // nolint: wrapcheck
	}
	if config.CatchUpInterval == 0 {
		config.CatchUpInterval = defaultCatchUpInterval
	}
	for i := range config.Databases {
		if config.Databases[i].Port == 0 {
			config.Databases[i].Port = defaultPort
		}
		if config.Databases[i].Name == "" {
			config.Databases[i].Name = config.Databases[i].Host
		}
	}
	return config, nil
}

// LoadFromEnv loads the credentials from the environment
func (c *Config) LoadFromEnv() error {
	err := envconfig.Process("dataset_records", &c.Credentials)
	if err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}
	return nil
}

// Validate checks the configuration attribute to ensure they are semantically correct
func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return errors.New("at least one database is required")
	}
	names := map[string]bool{}
	for _, d := range c.Databases {
		if d.Host == "" {
			return fmt.Errorf("database '%s' has no host", d.Name)
		}
		if d.Database == "" {
			return fmt.Errorf("database '%s' has no database name", d.Name)
		}
		if d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("database '%s' has invalid port %d", d.Name, d.Port)
		}
		if names[d.Name] {
			return fmt.Errorf("database name '%s' is used more than once", d.Name)
		}
		names[d.Name] = true
	}
	if c.CatchUpInterval < 0 {
		return fmt.Errorf("catch up interval must not be negative, got %s", c.CatchUpInterval)
	}
	if (c.MetricsTLS.CertFile == "") != (c.MetricsTLS.KeyFile == "") {
		return errors.New("metrics TLS certificate and key must be given together")
	}
	return nil
}

// PgConfig returns the connection parameters of the given database
func (c *Config) PgConfig(d DatabaseConfig) db.PgConfig {
	return db.PgConfig{
		Host:     d.Host,
		Port:     strconv.Itoa(d.Port),
		User:     c.Credentials.User,
		Password: c.Credentials.Password,
		Database: d.Database,
		SSLMode:  d.SSLMode,
	}
}
