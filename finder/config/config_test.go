package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spot-finder.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
regions: [eu-west-1, eu-central-1]
catalog: /tmp/types.csv
limit: 20
lookback: 30m
product_descriptions: ["Linux/UNIX"]
instance_regexes: ['^m5\.']
with_ondemand: true
credentials:
  profile: billing
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level: expected debug, got %q", cfg.LogLevel)
	}
	if len(cfg.Regions) != 2 || cfg.Regions[0] != "eu-west-1" {
		t.Errorf("regions: got %v", cfg.Regions)
	}
	if cfg.Limit != 20 {
		t.Errorf("limit: expected 20, got %d", cfg.Limit)
	}
	if cfg.Lookback != 30*time.Minute {
		t.Errorf("lookback: expected 30m, got %s", cfg.Lookback)
	}
	if !cfg.WithOnDemand {
		t.Error("expected with_ondemand to be set")
	}
	if cfg.Credentials.Profile != "billing" {
		t.Errorf("profile: expected billing, got %q", cfg.Credentials.Profile)
	}
	// untouched keys keep their defaults
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("timeout: expected default, got %s", cfg.Timeout)
	}
	if cfg.OperatingSystem != DefaultOS {
		t.Errorf("operating system: expected default, got %q", cfg.OperatingSystem)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, provider.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "limit: [not, a, number]\n")
	_, err := Load(path)
	if !errors.Is(err, provider.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{Limit: 5}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Regions) != 4 {
		t.Errorf("expected the 4 default regions, got %v", cfg.Regions)
	}
	if cfg.Limit != 5 {
		t.Errorf("expected limit 5 to be kept, got %d", cfg.Limit)
	}
	if cfg.CatalogPath != DefaultCatalogPath {
		t.Errorf("expected default catalog path, got %q", cfg.CatalogPath)
	}
	// a zero lookback means the source's own window and must be kept
	if cfg.Lookback != 0 {
		t.Errorf("expected lookback to stay 0, got %s", cfg.Lookback)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative limit", Config{Limit: -1}},
		{"zero limit", Config{Limit: 0}},
		{"negative lookback", Config{Limit: 1, Lookback: -time.Minute}},
		{"empty region", Config{Limit: 1, Regions: []string{"us-east-1", ""}}},
		{"half static keys", Config{Limit: 1, Credentials: Credentials{AccessKeyID: "AKIA"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, provider.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoad_ZeroLimitRejected(t *testing.T) {
	cfg, err := Load(writeConfig(t, "limit: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, provider.ErrConfiguration) {
		t.Errorf("expected configuration error for limit 0, got %v", err)
	}

	cfg, err = Load(writeConfig(t, "regions: [eu-west-1]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Limit != DefaultLimit {
		t.Errorf("expected default limit when unset, got %d", cfg.Limit)
	}
}

func TestCredentials_Static(t *testing.T) {
	if (Credentials{Profile: "x"}).Static() {
		t.Error("profile only must not be static")
	}
	if !(Credentials{AccessKeyID: "a", SecretAccessKey: "b"}).Static() {
		t.Error("expected static credentials")
	}
}
