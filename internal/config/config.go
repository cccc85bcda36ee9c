// Package config provides environment-variable-first configuration loading
// with optional YAML and dotenv file layers for the careers relay.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mail providers accepted in MAIL_PROVIDER.
const (
	ProviderSMTP     = "smtp"
	ProviderSES      = "ses"
	ProviderGraph    = "graph"
	ProviderPostmark = "postmark"
	ProviderStdout   = "stdout"
)

// implicitTLSPort is the submission port that expects TLS from the first byte.
const implicitTLSPort = 465

// ErrUnknownProvider is returned when MAIL_PROVIDER names no known channel.
var ErrUnknownProvider = errors.New("unknown mail provider")

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Mail     MailConfig     `yaml:"mail"`
	SES      SESConfig      `yaml:"ses"`
	Graph    GraphConfig    `yaml:"graph"`
	Postmark PostmarkConfig `yaml:"postmark"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Port      int    `yaml:"port" env:"PORT"`
	WebOrigin string `yaml:"web_origin" env:"WEB_ORIGIN"`
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`
}

// MailConfig holds the outbound channel settings shared by every provider.
// Host, Port, User and Password only apply to the smtp provider.
type MailConfig struct {
	Provider              string        `yaml:"provider" env:"MAIL_PROVIDER"`
	Host                  string        `yaml:"host" env:"MAIL_HOST"`
	Port                  int           `yaml:"port" env:"MAIL_PORT"`
	User                  string        `yaml:"user" env:"MAIL_USER"`
	Password              string        `yaml:"password" env:"MAIL_PASSWORD"`
	From                  string        `yaml:"from" env:"MAIL_FROM"`
	To                    string        `yaml:"to" env:"MAIL_TO"`
	TLSInsecureSkipVerify bool          `yaml:"tls_insecure_skip_verify" env:"MAIL_TLS_INSECURE_SKIP_VERIFY"`
	TLSCAFile             string        `yaml:"tls_ca_file" env:"MAIL_TLS_CA_FILE"`
	Timeout               time.Duration `yaml:"timeout" env:"MAIL_TIMEOUT"`
}

// SESConfig holds AWS SES configuration. Empty keys fall back to the
// default AWS credential chain.
type SESConfig struct {
	Region          string `yaml:"region" env:"SES_REGION"`
	AccessKeyID     string `yaml:"access_key_id" env:"SES_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SES_SECRET_ACCESS_KEY"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id" env:"GRAPH_TENANT_ID"`
	ClientID     string `yaml:"client_id" env:"GRAPH_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GRAPH_CLIENT_SECRET"`
}

// PostmarkConfig holds Postmark API configuration.
type PostmarkConfig struct {
	ServerToken   string `yaml:"server_token" env:"POSTMARK_SERVER_TOKEN"`
	AccountToken  string `yaml:"account_token" env:"POSTMARK_ACCOUNT_TOKEN"`
	MessageStream string `yaml:"message_stream" env:"POSTMARK_MESSAGE_STREAM"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Options selects the optional file layers read by Load.
type Options struct {
	// File is a YAML file applied on top of the defaults. Must exist when set.
	File string
	// EnvFiles are dotenv files loaded into the process environment.
	// Missing files are skipped; variables already set are never replaced.
	EnvFiles []string
}

// Load builds the configuration: defaults, then the YAML file, then dotenv
// files, then environment variables. Only non-empty environment variables
// override earlier layers.
func Load(opts Options) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	for _, path := range opts.EnvFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Server.Port = 4000
	c.Mail.Provider = ProviderSMTP
	c.Mail.Timeout = 30 * time.Second
	c.Logging.Level = "info"
}

func (c *Config) normalize() {
	c.Mail.Provider = strings.ToLower(strings.TrimSpace(c.Mail.Provider))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

func (c *Config) validate() error {
	switch c.Mail.Provider {
	case ProviderSMTP, ProviderSES, ProviderGraph, ProviderPostmark, ProviderStdout:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Mail.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	if c.Mail.Timeout <= 0 {
		return fmt.Errorf("invalid MAIL_TIMEOUT %s", c.Mail.Timeout)
	}
	return nil
}

// Secure reports whether the SMTP relay expects implicit TLS.
func (c *Config) Secure() bool {
	return c.Mail.Port == implicitTLSPort
}

// Origins returns the CORS allow list from WEB_ORIGIN. An empty list allows
// any origin.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.WebOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// MissingMailKeys returns the names of the settings the selected provider
// requires but that are empty, in a stable order.
func (c *Config) MissingMailKeys() []string {
	type key struct {
		name    string
		present bool
	}

	var keys []key
	switch c.Mail.Provider {
	case ProviderSMTP:
		keys = []key{
			{"MAIL_HOST", c.Mail.Host != ""},
			{"MAIL_PORT", c.Mail.Port != 0},
			{"MAIL_USER", c.Mail.User != ""},
			{"MAIL_PASSWORD", c.Mail.Password != ""},
		}
	case ProviderSES:
		keys = []key{{"SES_REGION", c.SES.Region != ""}}
	case ProviderGraph:
		keys = []key{
			{"GRAPH_TENANT_ID", c.Graph.TenantID != ""},
			{"GRAPH_CLIENT_ID", c.Graph.ClientID != ""},
			{"GRAPH_CLIENT_SECRET", c.Graph.ClientSecret != ""},
		}
	case ProviderPostmark:
		keys = []key{{"POSTMARK_SERVER_TOKEN", c.Postmark.ServerToken != ""}}
	}
	keys = append(keys, key{"MAIL_FROM", c.Mail.From != ""}, key{"MAIL_TO", c.Mail.To != ""})

	var missing []string
	for _, k := range keys {
		if !k.present {
			missing = append(missing, k.name)
		}
	}
	return missing
}
