package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

const (
	DefaultLimit       = 100
	DefaultLookback    = time.Hour
	DefaultCatalogPath = "instance-types.csv"
	DefaultTimeout     = 5 * time.Minute
	DefaultLogLevel    = "info"
	DefaultOS          = "Linux"
)

// DefaultRegions are queried when no region is given.
var DefaultRegions = []string{"us-west-1", "us-west-2", "us-east-1", "us-east-2"}

// Credentials is the explicit AWS identity handed to the client factory.
// Static keys win over Profile; with both empty the SDK default chain is used.
type Credentials struct {
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// Static reports whether static keys are configured.
func (c Credentials) Static() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Config holds every setting of a run. Start from Default: Validate fills
// empty regions, paths and durations but rejects a zero limit.
type Config struct {
	LogLevel            string        `yaml:"log_level"`
	Regions             []string      `yaml:"regions"`
	CatalogPath         string        `yaml:"catalog"`
	Limit               int           `yaml:"limit"`
	Lookback            time.Duration `yaml:"lookback"`
	ProductDescriptions []string      `yaml:"product_descriptions"`
	InstanceRegexes     []string      `yaml:"instance_regexes"`
	WithOnDemand        bool          `yaml:"with_ondemand"`
	OperatingSystem     string        `yaml:"operating_system"`
	MetricsTextfile     string        `yaml:"metrics_textfile"`
	Timeout             time.Duration `yaml:"timeout"`
	Credentials         Credentials   `yaml:"credentials"`
}

// Default returns a Config with every default filled in.
func Default() *Config {
	return &Config{
		LogLevel:        DefaultLogLevel,
		Regions:         append([]string(nil), DefaultRegions...),
		CatalogPath:     DefaultCatalogPath,
		Limit:           DefaultLimit,
		Lookback:        DefaultLookback,
		OperatingSystem: DefaultOS,
		Timeout:         DefaultTimeout,
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading config file '%s': %w", provider.ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: error unmarshalling config file '%s': %w", provider.ErrConfiguration, path, err)
	}
	return cfg, nil
}

// Validate fills defaults for empty settings and rejects invalid ones.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		c.Regions = append([]string(nil), DefaultRegions...)
	}
	if c.CatalogPath == "" {
		c.CatalogPath = DefaultCatalogPath
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.OperatingSystem == "" {
		c.OperatingSystem = DefaultOS
	}

	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", provider.ErrConfiguration, c.Limit)
	}
	if c.Lookback < 0 {
		return fmt.Errorf("%w: lookback must not be negative, got %s", provider.ErrConfiguration, c.Lookback)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %s", provider.ErrConfiguration, c.Timeout)
	}
	for _, r := range c.Regions {
		if r == "" {
			return fmt.Errorf("%w: empty region name", provider.ErrConfiguration)
		}
	}
	if (c.Credentials.AccessKeyID == "") != (c.Credentials.SecretAccessKey == "") {
		return fmt.Errorf("%w: access_key_id and secret_access_key must be set together", provider.ErrConfiguration)
	}
	return nil
}
