// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultSessionSecret = "change_this_secret"

// Config holds application configuration loaded from the environment.
type Config struct {
	// Port is the HTTP port used when HTTPAddr is empty (e.g. 3000).
	Port string `mapstructure:"PORT"`
	// HTTPAddr is the full listen address for the web server (e.g. :3000). Overrides Port when set.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health server; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// PublicBaseURL is the externally reachable origin used in provider callback URLs
	// (e.g. https://calls.example.com). When empty the request's scheme and host are used.
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	// SessionSecret signs the session cookie. The built-in default is rejected in production.
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	// SessionTTLRaw is the session lifetime (e.g. "24h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`

	TwilioAccountSID   string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioVerifySID    string `mapstructure:"TWILIO_VERIFY_SID"`
	TwilioFromNumber   string `mapstructure:"TWILIO_FROM_NUMBER"`
	TwilioAPIKeySID    string `mapstructure:"TWILIO_API_KEY_SID"`
	TwilioAPIKeySecret string `mapstructure:"TWILIO_API_KEY_SECRET"`
	TwilioTwiMLAppSID  string `mapstructure:"TWILIO_TWIML_APP_SID"`
	// TwilioTokenTTLRaw is the softphone access token lifetime (e.g. "1h").
	TwilioTokenTTLRaw string `mapstructure:"TWILIO_TOKEN_TTL"`

	// VoiceFallbackMessage is spoken when the dialplan has no target.
	VoiceFallbackMessage string `mapstructure:"VOICE_FALLBACK_MESSAGE"`
	// DialTimeoutSeconds is the ring timeout for the bridged leg.
	DialTimeoutSeconds int `mapstructure:"DIAL_TIMEOUT_SECONDS"`
	// DialPolicyFile is an optional Rego file replacing the default dial policy.
	DialPolicyFile string `mapstructure:"DIAL_POLICY_FILE"`
	// DialDenyPrefixes is a comma-separated list of target prefixes the default policy refuses.
	DialDenyPrefixes string `mapstructure:"DIAL_DENY_PREFIXES"`

	// DatabaseURL is the Postgres DSN for persistent sessions; empty keeps sessions in memory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the telemetry worker pushes logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`

	// LogLevel is a logrus level name (trace, debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFile enables a rotating log file in addition to stdout.
	LogFile string `mapstructure:"LOG_FILE"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("HTTP_ADDR", "")
	v.SetDefault("GRPC_ADDR", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("SESSION_SECRET", defaultSessionSecret)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("TWILIO_ACCOUNT_SID", "")
	v.SetDefault("TWILIO_AUTH_TOKEN", "")
	v.SetDefault("TWILIO_VERIFY_SID", "")
	v.SetDefault("TWILIO_FROM_NUMBER", "")
	v.SetDefault("TWILIO_API_KEY_SID", "")
	v.SetDefault("TWILIO_API_KEY_SECRET", "")
	v.SetDefault("TWILIO_TWIML_APP_SID", "")
	v.SetDefault("TWILIO_TOKEN_TTL", "1h")
	v.SetDefault("VOICE_FALLBACK_MESSAGE", "Sorry, the subscriber is unavailable.")
	v.SetDefault("DIAL_TIMEOUT_SECONDS", 20)
	v.SetDefault("DIAL_POLICY_FILE", "")
	v.SetDefault("DIAL_DENY_PREFIXES", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "callapp-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "callapp-telemetry-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "callapp")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_FORMAT", "text")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		if cfg.Port == "" {
			return nil, errors.New("config: PORT or HTTP_ADDR must be set")
		}
		cfg.HTTPAddr = ":" + strings.TrimPrefix(cfg.Port, ":")
	}

	if cfg.SessionSecret == "" {
		return nil, errors.New("config: SESSION_SECRET must not be empty")
	}
	if cfg.IsProduction() && cfg.SessionSecret == defaultSessionSecret {
		return nil, errors.New("config: SESSION_SECRET must be set when APP_ENV=production")
	}

	if cfg.DialTimeoutSeconds <= 0 {
		cfg.DialTimeoutSeconds = 20
	}

	switch cfg.LogFormat {
	case "text", "json":
	case "":
		cfg.LogFormat = "text"
	default:
		return nil, errors.New("config: LOG_FORMAT must be text or json")
	}

	cfg.PublicBaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.PublicBaseURL), "/")

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionTTL parses SessionTTLRaw. Returns 24h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// TokenTTL parses TwilioTokenTTLRaw. Returns 1h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.TwilioTokenTTLRaw)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

// DialDenyPrefixList returns the configured deny prefixes for the dial policy.
func (c *Config) DialDenyPrefixList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.DialDenyPrefixes)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
