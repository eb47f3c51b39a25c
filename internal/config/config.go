// Package config holds process-wide settings for the API server and
// worker: connection strings, ports, webhook delivery, and the MAIL
// FROM address handed to the job executor. Workspace verification
// settings (internal/wsconfig) resolve against wsconfig.Defaults, not
// against this package; the SMTP/DNS timeouts, sentinel thresholds and
// time limits held here are not read by the verification engine.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide default configuration, loaded from a YAML
// file with environment variable overrides for deployment-specific
// settings (ports, connection strings).
type Config struct {
	// SMTP
	SMTPConnectTimeout time.Duration
	SMTPReadTimeout    time.Duration
	EHLOHostname       string
	MailFrom           string

	// DNS
	DNSTimeout time.Duration

	// SMTP-blocked sentinel (C4)
	SentinelThresholdHosts  int
	SentinelWindow          time.Duration
	SentinelBlockedTTL      time.Duration

	// Catch-all detection (C5)
	CatchAllProbeHosts int

	// Web mention search (C6)
	WebSearchTimeout time.Duration

	// Job executor (C11)
	VerifySoftTimeLimit time.Duration
	VerifyHardTimeLimit time.Duration

	// Infra
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string
	ServerPort    string
	WebhookTimeout time.Duration

	// Webhook collaborator (C11 step 9)
	WebhookEndpoint string
	WebhookSecret   string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		SMTPConnectTimeout: 5 * time.Second,
		SMTPReadTimeout:    5 * time.Second,
		EHLOHostname:       "verify.mailverify.local",
		MailFrom:           "noreply@mailcheck.local",

		DNSTimeout: 5 * time.Second,

		SentinelThresholdHosts: 3,
		SentinelWindow:         300 * time.Second,
		SentinelBlockedTTL:     900 * time.Second,

		CatchAllProbeHosts: 2,

		WebSearchTimeout: 3 * time.Second,

		VerifySoftTimeLimit: 600 * time.Second,
		VerifyHardTimeLimit: 660 * time.Second,

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/mailverify"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		WebhookTimeout: 10 * time.Second,

		WebhookEndpoint: getEnv("WEBHOOK_ENDPOINT", ""),
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
	}
}

// Load reads configPath (YAML) and merges it over DefaultConfig, the
// way the teacher's loadConfig does. A missing file yields the defaults
// and a nil error; an unparsable file yields the defaults together with
// the parse error, which the binaries log as a warning before carrying
// on with DefaultConfig.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, nil
	}

	var file struct {
		SMTP struct {
			ConnectTimeout time.Duration `yaml:"connect_timeout"`
			ReadTimeout    time.Duration `yaml:"read_timeout"`
			EHLOHostname   string        `yaml:"ehlo_hostname"`
			MailFrom       string        `yaml:"mail_from"`
		} `yaml:"smtp"`
		DNS struct {
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"dns"`
	}

	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, err
	}

	if file.SMTP.ConnectTimeout > 0 {
		cfg.SMTPConnectTimeout = file.SMTP.ConnectTimeout
	}
	if file.SMTP.ReadTimeout > 0 {
		cfg.SMTPReadTimeout = file.SMTP.ReadTimeout
	}
	if file.SMTP.EHLOHostname != "" {
		cfg.EHLOHostname = file.SMTP.EHLOHostname
	}
	if file.SMTP.MailFrom != "" {
		cfg.MailFrom = file.SMTP.MailFrom
	}
	if file.DNS.Timeout > 0 {
		cfg.DNSTimeout = file.DNS.Timeout
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
