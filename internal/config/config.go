// Package config loads and validates docsite configuration via Viper.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source kinds.
const (
	SourceGoogle   = "google"
	SourceFixtures = "fixtures"
)

// ErrMissingCredentials is returned when the google source has no service account key.
var ErrMissingCredentials = errors.New("missing google credentials: set google.credentials_b64, google.credentials_json or google.credentials")

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	RootDocID string        `mapstructure:"root_doc_id"`
	Source    SourceConfig  `mapstructure:"source"`
	Google    GoogleConfig  `mapstructure:"google"`
	Output    OutputConfig  `mapstructure:"output"`
	Assets    AssetsConfig  `mapstructure:"assets"`
	Storage   StorageConfig `mapstructure:"storage"`
	DB        DBConfig      `mapstructure:"db"`
	PubSub    PubSubConfig  `mapstructure:"pubsub"`
	Server    ServerConfig  `mapstructure:"server"`
	Logging   LoggingConfig `mapstructure:"logging"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
}

// SourceConfig selects where documents come from.
type SourceConfig struct {
	Kind        string `mapstructure:"kind"`
	FixturesDir string `mapstructure:"fixtures_dir"`
}

// GoogleConfig holds the Docs/Drive client settings.
type GoogleConfig struct {
	CredentialsB64  string   `mapstructure:"credentials_b64"`
	CredentialsJSON string   `mapstructure:"credentials_json"`
	Credentials     string   `mapstructure:"credentials"`
	UserAgent       string   `mapstructure:"user_agent"`
	LinkHosts       []string `mapstructure:"link_hosts"`
}

// OutputConfig controls the generated site tree.
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	StaticDir string `mapstructure:"static_dir"`
	Template  string `mapstructure:"template"`
	Clean     bool   `mapstructure:"clean"`
}

// AssetsConfig controls image localization.
type AssetsConfig struct {
	Dir            string `mapstructure:"dir"`
	URLPrefix      string `mapstructure:"url_prefix"`
	StaticPrefix   string `mapstructure:"static_prefix"`
	MaxBytes       int    `mapstructure:"max_bytes"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	// RequestsPerSecond paces downloads per image host; zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig publishes the site to GCS instead of output.dir when a bucket is set.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls the optional page manifest.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for build notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls metrics export for one-shot builds.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindLegacyEnv keeps the unprefixed variable names deployments already use.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"root_doc_id":             {"DOCSITE_ROOT_DOC_ID", "ROOT_DOC_ID"},
		"google.credentials_b64":  {"DOCSITE_GOOGLE_CREDENTIALS_B64", "GOOGLE_CREDENTIALS_B64"},
		"google.credentials_json": {"DOCSITE_GOOGLE_CREDENTIALS_JSON", "GOOGLE_CREDENTIALS_JSON"},
		"google.credentials":      {"DOCSITE_GOOGLE_CREDENTIALS", "GOOGLE_CREDENTIALS"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.kind", SourceGoogle)
	v.SetDefault("source.fixtures_dir", "fixtures")
	v.SetDefault("google.user_agent", "docsite/1.0")
	v.SetDefault("google.link_hosts", []string{"docs.google.com"})
	v.SetDefault("output.dir", "dist")
	v.SetDefault("output.static_dir", "static")
	v.SetDefault("output.clean", true)
	v.SetDefault("assets.dir", "static/images")
	v.SetDefault("assets.url_prefix", "/static/images/")
	v.SetDefault("assets.static_prefix", "/static/")
	v.SetDefault("assets.max_bytes", 20<<20)
	v.SetDefault("assets.timeout_seconds", 30)
	v.SetDefault("assets.user_agent", "docsite/1.0")
	v.SetDefault("assets.requests_per_second", 5.0)
	v.SetDefault("assets.burst", 2)
	v.SetDefault("storage.prefix", "")
	v.SetDefault("db.table", "docsite_pages")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. The root document
// id is checked by the commands that need it, so serve and build can share
// one Config.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceGoogle:
	case SourceFixtures:
		if strings.TrimSpace(c.Source.FixturesDir) == "" {
			return fmt.Errorf("source.fixtures_dir must be set when source.kind is %q", SourceFixtures)
		}
	default:
		return fmt.Errorf("source.kind must be %q or %q, got %q", SourceGoogle, SourceFixtures, c.Source.Kind)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Output.Dir) == "" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("output.dir must be set when storage.gcs_bucket is empty")
	}
	if c.Assets.TimeoutSeconds <= 0 {
		return fmt.Errorf("assets.timeout_seconds must be > 0")
	}
	if c.Assets.MaxBytes < 0 {
		return fmt.Errorf("assets.max_bytes must be >= 0")
	}
	if c.Assets.RequestsPerSecond < 0 {
		return fmt.Errorf("assets.requests_per_second must be >= 0")
	}
	if !strings.HasPrefix(c.Assets.URLPrefix, "/") {
		return fmt.Errorf("assets.url_prefix must start with /")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.DB.DSN != "" && !validIdentifier(c.DB.Table) {
		return fmt.Errorf("db.table %q is not a valid identifier", c.DB.Table)
	}
	return nil
}

// AssetTimeout converts the image download timeout to a duration.
func (c Config) AssetTimeout() time.Duration {
	return time.Duration(c.Assets.TimeoutSeconds) * time.Second
}

// ServiceAccountKey returns the service account key, trying the base64, JSON
// and raw settings in that order.
func (c GoogleConfig) ServiceAccountKey() ([]byte, error) {
	if c.CredentialsB64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.CredentialsB64))
		if err != nil {
			return nil, fmt.Errorf("decode google.credentials_b64: %w", err)
		}
		return decoded, nil
	}
	if c.CredentialsJSON != "" {
		return []byte(c.CredentialsJSON), nil
	}
	if c.Credentials != "" {
		return []byte(c.Credentials), nil
	}
	return nil, ErrMissingCredentials
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
