/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package datasetrecord

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const configYAML = `
databases:
  - name: summit
    host: db.summit
    database: ocs
    sslmode: require
  - host: db.base
    port: 6432
    database: ocs
catchUpInterval: 1m
metricsAddress: 127.0.0.1:9090
`

var _ = Describe("Config", func() {
	It("parses the databases and fills in the defaults", func() {
		config, err := ParseConfig([]byte(configYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(config.Databases).To(Equal([]DatabaseConfig{
			{Name: "summit", Host: "db.summit", Port: 5432, Database: "ocs", SSLMode: "require"},
			{Name: "db.base", Host: "db.base", Port: 6432, Database: "ocs"},
		}))
		Expect(config.CatchUpInterval).To(Equal(time.Minute))
		Expect(config.MetricsAddress).To(Equal("127.0.0.1:9090"))
		Expect(config.Validate()).To(Succeed())
	})

	It("uses the default catch up interval", func() {
		config, err := ParseConfig([]byte("databases: [{host: localhost, database: ocs}]"))
		Expect(err).NotTo(HaveOccurred())
		Expect(config.CatchUpInterval).To(Equal(30 * time.Second))
	})

	DescribeTable("rejects invalid configurations",
		func(content string, message string) {
			config, err := ParseConfig([]byte(content))
			Expect(err).NotTo(HaveOccurred())
			Expect(config.Validate()).To(MatchError(ContainSubstring(message)))
		},
		Entry("no databases", "databases: []", "at least one database"),
		Entry("no host", "databases: [{name: a, database: ocs}]", "has no host"),
		Entry("no database name", "databases: [{host: a}]", "has no database name"),
		Entry("bad port", "databases: [{host: a, database: ocs, port: 70000}]", "invalid port"),
		Entry("duplicate name", "databases: [{host: a, database: ocs}, {host: a, database: other}]",
			"used more than once"),
		Entry("metrics certificate without key",
			"databases: [{host: a, database: ocs}]\nmetricsTLS: {certFile: tls.crt}", "must be given together"),
	)

	Describe("LoadConfig", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "config.yaml")
			Expect(os.WriteFile(path, []byte(configYAML), 0o600)).To(Succeed())
		})

		It("reads the credentials from the environment", func() {
			GinkgoT().Setenv("DATASET_RECORDS_DB_USER", "records")
			GinkgoT().Setenv("DATASET_RECORDS_DB_PASSWORD", "secret")

			config, err := LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			pg := config.PgConfig(config.Databases[1])
			Expect(pg.User).To(Equal("records"))
			Expect(pg.Password).To(Equal("secret"))
			Expect(pg.Port).To(Equal("6432"))
			Expect(pg.Host).To(Equal("db.base"))
		})

		It("fails without credentials", func() {
			GinkgoT().Setenv("DATASET_RECORDS_DB_USER", "")
			Expect(os.Unsetenv("DATASET_RECORDS_DB_USER")).To(Succeed())
			GinkgoT().Setenv("DATASET_RECORDS_DB_PASSWORD", "secret")

			_, err := LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to process environment variables")))
		})

		It("fails when the file doesn't exist", func() {
			_, err := LoadConfig(filepath.Join(filepath.Dir(path), "missing.yaml"))
			Expect(err).To(MatchError(ContainSubstring("failed to read configuration file")))
		})
	})
})
