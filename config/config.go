package config

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/adamwoolhether/httper/v2/client"
)

// DefaultEnvPrefix prefixes every environment variable read by [Load].
const DefaultEnvPrefix = "HTTPER"

// Settings mirrors the client options that can be expressed as plain data.
type Settings struct {
	BaseURL           string            `mapstructure:"base_url" validate:"omitempty,url,endswith=/"`
	Timeout           time.Duration     `mapstructure:"timeout" validate:"gte=0"`
	UserAgent         string            `mapstructure:"user_agent"`
	Headers           map[string]string `mapstructure:"headers"`
	Params            map[string]string `mapstructure:"params"`
	Debug             bool              `mapstructure:"debug"`
	DebugBodyLimit    int64             `mapstructure:"debug_body_limit" validate:"gte=0"`
	RedactedHeaders   []string          `mapstructure:"redacted_headers" validate:"dive,required"`
	MaxConcurrent     int               `mapstructure:"max_concurrent" validate:"gte=0"`
	NoFollowRedirects bool              `mapstructure:"no_follow_redirects"`
	Throttle          *Throttle         `mapstructure:"throttle"`
	TLS               *TLS              `mapstructure:"tls"`
}

// Throttle configures outbound rate limiting.
type Throttle struct {
	RPS   int `mapstructure:"rps" validate:"gt=0"`
	Burst int `mapstructure:"burst" validate:"gt=0"`
}

// TLS configures certificate verification. It maps onto [client.TLSPolicy].
type TLS struct {
	CAFile     string `mapstructure:"ca_file" validate:"omitempty,file"`
	CertFile   string `mapstructure:"cert_file" validate:"required_with=KeyFile"`
	KeyFile    string `mapstructure:"key_file" validate:"required_with=CertFile"`
	ServerName string `mapstructure:"server_name"`
	MinVersion string `mapstructure:"min_version" validate:"omitempty,oneof=1.2 1.3"`
}

// keys lists every scalar setting, so that it can be bound to its
// environment variable.
var keys = []string{
	"base_url",
	"timeout",
	"user_agent",
	"debug",
	"debug_body_limit",
	"redacted_headers",
	"max_concurrent",
	"no_follow_redirects",
	"throttle.rps",
	"throttle.burst",
	"tls.ca_file",
	"tls.cert_file",
	"tls.key_file",
	"tls.server_name",
	"tls.min_version",
}

// LoadOption configures [Load].
type LoadOption func(*loader)

type loader struct {
	file      string
	envFile   string
	envPrefix string
}

// WithFile reads settings from path. The format follows the extension.
func WithFile(path string) LoadOption {
	return func(l *loader) { l.file = path }
}

// WithEnvFile loads path as a .env file before reading the environment.
func WithEnvFile(path string) LoadOption {
	return func(l *loader) { l.envFile = path }
}

// WithEnvPrefix replaces [DefaultEnvPrefix].
func WithEnvPrefix(prefix string) LoadOption {
	return func(l *loader) { l.envPrefix = prefix }
}

// Load reads and validates settings. Validation failures are returned as
// [FieldErrors].
func Load(opts ...LoadOption) (Settings, error) {
	l := loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&l)
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return Settings{}, fmt.Errorf("loading env file %s: %w", l.envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if l.file != "" {
		v.SetConfigFile(l.file)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config file %s: %w", l.file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}

	if err := Validate(s); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// Options converts the settings into client options. Zero values are left
// to the client defaults.
func (s Settings) Options() []client.Option {
	var opts []client.Option

	if s.BaseURL != "" {
		opts = append(opts, client.WithBaseURL(s.BaseURL))
	}
	if s.Timeout > 0 {
		opts = append(opts, client.WithTimeout(s.Timeout))
	}
	if s.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(s.UserAgent))
	}
	if len(s.Headers) > 0 {
		opts = append(opts, client.WithHeaders(s.Headers))
	}
	if len(s.Params) > 0 {
		opts = append(opts, client.WithParams(s.Params))
	}
	if s.Debug {
		opts = append(opts, client.WithDebug(true))
	}
	if s.DebugBodyLimit > 0 {
		opts = append(opts, client.WithDebugBodyLimit(s.DebugBodyLimit))
	}
	if len(s.RedactedHeaders) > 0 {
		opts = append(opts, client.WithRedactedHeaders(s.RedactedHeaders...))
	}
	if s.MaxConcurrent > 0 {
		opts = append(opts, client.WithMaxConcurrent(s.MaxConcurrent))
	}
	if s.NoFollowRedirects {
		opts = append(opts, client.WithNoFollowRedirects())
	}
	if s.Throttle != nil {
		opts = append(opts, client.WithThrottle(s.Throttle.RPS, s.Throttle.Burst))
	}
	if s.TLS != nil {
		opts = append(opts, client.WithTLS(s.TLS.Policy()))
	}

	return opts
}

// Client builds a client from the settings, with extra applied last.
func (s Settings) Client(extra ...client.Option) (*client.Client, error) {
	c, err := client.Build(append(s.Options(), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("building client from settings: %w", err)
	}

	return c, nil
}

// Policy converts the settings into a [client.TLSPolicy].
func (t TLS) Policy() client.TLSPolicy {
	p := client.TLSPolicy{
		CAFile:     t.CAFile,
		CertFile:   t.CertFile,
		KeyFile:    t.KeyFile,
		ServerName: t.ServerName,
	}

	switch t.MinVersion {
	case "1.3":
		p.MinVersion = tls.VersionTLS13
	case "1.2":
		p.MinVersion = tls.VersionTLS12
	}

	return p
}
