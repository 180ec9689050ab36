// Package config loads the tenbis-barcodes configuration from a YAML or TOML
// file, applies environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultMonthsBack covers the whole order history a typical account has.
const DefaultMonthsBack = 100

// Duration is a time.Duration that reads "60s"-style strings from YAML and TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler (used by TOML).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config is the full run configuration.
type Config struct {
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Vendor   VendorConfig   `yaml:"vendor" toml:"vendor"`
	API      APIConfig      `yaml:"api" toml:"api"`
	Pipeline PipelineConfig `yaml:"pipeline" toml:"pipeline"`
	SMTP     SMTPConfig     `yaml:"smtp" toml:"smtp"`
	Notion   NotionConfig   `yaml:"notion" toml:"notion"`
	Archive  ArchiveConfig  `yaml:"archive" toml:"archive"`
	Export   ExportConfig   `yaml:"export" toml:"export"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	LogLevel string         `yaml:"log_level" toml:"log_level"`
}

// AuthConfig selects how the session credential is obtained. Token wins over
// Cookie; Email triggers the interactive OTP login when both are empty.
type AuthConfig struct {
	Token  string `yaml:"token" toml:"token"`
	Cookie string `yaml:"cookie" toml:"cookie"`
	Email  string `yaml:"email" toml:"email"`
}

// VendorConfig identifies the merchant whose coupons are collected.
type VendorConfig struct {
	Name            string `yaml:"name" toml:"name"`
	RestaurantID    int64  `yaml:"restaurant_id" toml:"restaurant_id"`
	Currency        string `yaml:"currency" toml:"currency"`
	ExcludeCanceled bool   `yaml:"exclude_canceled" toml:"exclude_canceled"`
}

// APIConfig holds the remote endpoints and request defaults.
type APIConfig struct {
	WebBaseURL     string   `yaml:"web_base_url" toml:"web_base_url"`
	APIBaseURL     string   `yaml:"api_base_url" toml:"api_base_url"`
	Culture        string   `yaml:"culture" toml:"culture"`
	UICulture      string   `yaml:"ui_culture" toml:"ui_culture"`
	RequestTimeout Duration `yaml:"request_timeout" toml:"request_timeout"`
}

// PipelineConfig tunes the fetch-and-aggregate stages.
type PipelineConfig struct {
	MonthsBack           int                  `yaml:"months_back" toml:"months_back"`
	Workers              int                  `yaml:"workers" toml:"workers"`
	OutputDir            string               `yaml:"output_dir" toml:"output_dir"`
	DownloadTimeout      Duration             `yaml:"download_timeout" toml:"download_timeout"`
	CollectFailurePolicy domain.FailurePolicy `yaml:"collect_failure_policy" toml:"collect_failure_policy"`
}

// SMTPConfig configures the email notifier.
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	From     string `yaml:"from" toml:"from"`
	To       string `yaml:"to" toml:"to"`
	Subject  string `yaml:"subject" toml:"subject"`
}

// NotionConfig configures the Notion notifier.
type NotionConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Token      string `yaml:"token" toml:"token"`
	DatabaseID string `yaml:"database_id" toml:"database_id"`
}

// ArchiveConfig configures the optional GCS mirror of the output directory.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket" toml:"bucket"`
	Prefix          string `yaml:"prefix" toml:"prefix"`
	CredentialsFile string `yaml:"credentials_file" toml:"credentials_file"`
}

// ExportConfig configures the optional BigQuery export.
type ExportConfig struct {
	ProjectID       string `yaml:"project_id" toml:"project_id"`
	Dataset         string `yaml:"dataset" toml:"dataset"`
	CredentialsFile string `yaml:"credentials_file" toml:"credentials_file"`
}

// MetricsConfig configures the Prometheus push gateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" toml:"pushgateway_url"`
	Job            string `yaml:"job" toml:"job"`
}

// DefaultWorkers mirrors a thread pool sized to the machine: NumCPU+4, capped at 32.
func DefaultWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

// DefaultConfig returns a configuration for Shufersal coupons on 10bis.
func DefaultConfig() *Config {
	return &Config{
		Vendor: VendorConfig{
			Name:            "Shufersal",
			RestaurantID:    26698,
			Currency:        "ILS",
			ExcludeCanceled: true,
		},
		API: APIConfig{
			WebBaseURL:     "https://www.10bis.co.il",
			APIBaseURL:     "https://api.10bis.co.il",
			Culture:        "he-IL",
			UICulture:      "he",
			RequestTimeout: Duration{30 * time.Second},
		},
		Pipeline: PipelineConfig{
			MonthsBack:           DefaultMonthsBack,
			Workers:              DefaultWorkers(),
			OutputDir:            "barcodes",
			DownloadTimeout:      Duration{60 * time.Second},
			CollectFailurePolicy: domain.SkipFailures,
		},
		SMTP: SMTPConfig{
			Host:    "smtp.gmail.com",
			Port:    587,
			Subject: "10bis barcodes",
		},
		Metrics: MetricsConfig{
			Job: "tenbis_barcodes",
		},
		LogLevel: "info",
	}
}

// Load reads the config file at path on top of DefaultConfig and applies
// environment overrides. An empty path, or a path that does not exist, yields
// the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}

	ApplyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parsing TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables read through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("TENBIS_TOKEN", &cfg.Auth.Token)
	str("TENBIS_COOKIE", &cfg.Auth.Cookie)
	str("TENBIS_EMAIL", &cfg.Auth.Email)
	str("TENBIS_OUTPUT_DIR", &cfg.Pipeline.OutputDir)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("NOTION_TOKEN", &cfg.Notion.Token)
	str("GCS_BUCKET", &cfg.Archive.Bucket)
	str("PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("TENBIS_MONTHS_BACK"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MonthsBack = n
		}
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Vendor.RestaurantID <= 0 {
		problems = append(problems, "vendor.restaurant_id must be positive")
	}
	if c.Pipeline.MonthsBack <= 0 {
		problems = append(problems, "pipeline.months_back must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		problems = append(problems, "pipeline.workers must be positive")
	}
	if strings.TrimSpace(c.Pipeline.OutputDir) == "" {
		problems = append(problems, "pipeline.output_dir is required")
	}
	if c.Pipeline.DownloadTimeout.Duration <= 0 {
		problems = append(problems, "pipeline.download_timeout must be positive")
	}
	if !c.Pipeline.CollectFailurePolicy.Valid() {
		problems = append(problems, fmt.Sprintf("pipeline.collect_failure_policy must be %q or %q", domain.SkipFailures, domain.AbortOnFailure))
	}
	for name, raw := range map[string]string{"api.web_base_url": c.API.WebBaseURL, "api.api_base_url": c.API.APIBaseURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, name+" must be an absolute URL")
		}
	}
	if c.SMTP.Enabled {
		if c.SMTP.Host == "" || c.SMTP.Port <= 0 {
			problems = append(problems, "smtp.host and smtp.port are required when smtp is enabled")
		}
		if c.SMTP.From == "" || c.SMTP.To == "" {
			problems = append(problems, "smtp.from and smtp.to are required when smtp is enabled")
		}
	}
	if c.Notion.Enabled && (c.Notion.Token == "" || c.Notion.DatabaseID == "") {
		problems = append(problems, "notion.token and notion.database_id are required when notion is enabled")
	}
	if c.Export.ProjectID != "" && c.Export.Dataset == "" {
		problems = append(problems, "export.dataset is required when export.project_id is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
