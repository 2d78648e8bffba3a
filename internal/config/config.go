// Package config defines the product service configuration.
package config

import (
	"strings"
	"time"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
)

var (
	_ configloader.Validator = (*Config)(nil)
	_ configloader.Defaulter = (*Config)(nil)
)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Database   config.DatabaseConfig  `koanf:"database"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	CORS       config.CORSConfig      `koanf:"cors"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
}

// Defaults returns the values used when neither the YAML file nor the environment set a key.
// It is called on a nil *Config and must not read the receiver.
func (*Config) Defaults() map[string]any {
	return map[string]any{
		"server.port":                        8080,
		"server.maxheaderbytes":              1 << 20,
		"server.multipartmaxmemory":          int64(32 << 20),
		"server.timeout.read":                15 * time.Second,
		"server.timeout.write":               15 * time.Second,
		"server.timeout.idle":                60 * time.Second,
		"server.timeout.readheader":          5 * time.Second,
		"database.driver":                    config.DriverMongo,
		"database.url":                       "mongodb://localhost:27017",
		"database.name":                      "productdb",
		"database.collection":                "products",
		"database.timeout":                   10 * time.Second,
		"log.level":                          "info",
		"pprof.enabled":                      false,
		"pprof.addr":                         "localhost:6060",
		"shutdown.timeout":                   10 * time.Second,
		"cors.allowedorigin":                 "http://localhost:3000",
		"telemetry.enabled":                  false,
		"telemetry.traces.otlphttp.endpoint": "localhost:4318",
		"telemetry.traces.otlphttp.insecure": true,
		"telemetry.traces.otlphttp.timeout":  5 * time.Second,
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.CORS.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.CORS.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}
