package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/optiply/target-vendit/internal/infrastructure/cache"
	"github.com/optiply/target-vendit/internal/infrastructure/logger"
	"github.com/optiply/target-vendit/internal/infrastructure/telemetry"
	"github.com/optiply/target-vendit/internal/infrastructure/vendit"
)

// EnvPrefix prefixes every environment override, e.g. VENDIT_API_KEY
const EnvPrefix = "VENDIT"

// ErrInvalid is wrapped by every configuration error returned from Load
var ErrInvalid = errors.New("invalid configuration")

// Config holds the connector configuration. Top-level keys follow the
// connector's JSON config file; nested sections use dotted keys.
type Config struct {
	APIKey          string `key:"api_key" validate:"required"`
	Token           string `key:"token"`
	Username        string `key:"username" validate:"required_without=Token"`
	Password        string `key:"password" validate:"required_without=Token"`
	OAuthURL        string `key:"oauth_url" validate:"required,url"`
	APIURL          string `key:"api_url" validate:"required,url"`
	TimeoutSeconds  int    `key:"timeout_seconds" validate:"gt=0"`
	BatchSize       int    `key:"batch_size" validate:"gt=0"`
	DefaultOfficeID int64  `key:"default_office_id" validate:"gte=0"`
	SubmissionMode  string `key:"submission_mode" validate:"oneof=buffered per_item"`
	ValidateRecords bool   `key:"validate_records"`

	Log       LogConfig       `key:"log"`
	Redis     RedisConfig     `key:"redis"`
	Kafka     KafkaConfig     `key:"kafka"`
	Ledger    LedgerConfig    `key:"ledger"`
	Admin     AdminConfig     `key:"admin"`
	Telemetry TelemetryConfig `key:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `key:"level" validate:"oneof=debug info warn warning error"`
	Format string `key:"format" validate:"oneof=json console"`
	Output string `key:"output" validate:"required"` // stdout, stderr, or file path
}

// RedisConfig holds the shared token cache settings
type RedisConfig struct {
	Enabled  bool          `key:"enabled"`
	Host     string        `key:"host"`
	Port     int           `key:"port" validate:"gt=0"`
	Password string        `key:"password"`
	DB       int           `key:"db" validate:"gte=0"`
	TokenTTL time.Duration `key:"token_ttl" validate:"gt=0"`
}

// KafkaConfig holds the optional Kafka input settings
type KafkaConfig struct {
	Brokers     []string      `key:"brokers"`
	Topic       string        `key:"topic" validate:"required_with=Brokers"`
	GroupID     string        `key:"group_id"`
	IdleTimeout time.Duration `key:"idle_timeout" validate:"gt=0"`
}

// LedgerConfig selects the result ledger sinks; empty values disable a sink
type LedgerConfig struct {
	Dir        string `key:"dir"`
	KafkaTopic string `key:"kafka_topic"`
	PebbleDir  string `key:"pebble_dir"`
}

// Enabled reports whether any ledger sink is configured
func (l LedgerConfig) Enabled() bool {
	return l.Dir != "" || l.KafkaTopic != "" || l.PebbleDir != ""
}

// AdminConfig holds the admin HTTP server settings; an empty Addr disables it
type AdminConfig struct {
	Addr string `key:"addr"`
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool    `key:"enabled"`
	CollectorEndpoint string  `key:"collector_endpoint"`
	SamplingRatio     float64 `key:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string  `key:"service_name"`
	Insecure          bool    `key:"insecure"`
	Logs              bool    `key:"logs"`
}

// Load reads configuration from path, or from config.toml in the working
// directory when path is empty.
// Priority (highest to lowest):
// 1. Environment variables with VENDIT_ prefix (e.g., VENDIT_API_KEY)
// 2. the config file
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

// setDefaults registers defaults that cannot be told apart from an explicit zero
func setDefaults(v *viper.Viper) {
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIKey:          firstNonEmpty(v.GetString("api_key"), v.GetString("vendit_api_key")),
		Token:           v.GetString("token"),
		Username:        v.GetString("username"),
		Password:        v.GetString("password"),
		OAuthURL:        v.GetString("oauth_url"),
		APIURL:          v.GetString("api_url"),
		TimeoutSeconds:  v.GetInt("timeout_seconds"),
		BatchSize:       v.GetInt("batch_size"),
		DefaultOfficeID: v.GetInt64("default_office_id"),
		SubmissionMode:  v.GetString("submission_mode"),
		ValidateRecords: v.GetBool("validate_records"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TokenTTL: v.GetDuration("redis.token_ttl"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetStringSlice("kafka.brokers")),
			Topic:       v.GetString("kafka.topic"),
			GroupID:     v.GetString("kafka.group_id"),
			IdleTimeout: v.GetDuration("kafka.idle_timeout"),
		},
		Ledger: LedgerConfig{
			Dir:        v.GetString("ledger.dir"),
			KafkaTopic: v.GetString("ledger.kafka_topic"),
			PebbleDir:  v.GetString("ledger.pebble_dir"),
		},
		Admin: AdminConfig{
			Addr: v.GetString("admin.addr"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			Logs:              v.GetBool("telemetry.logs"),
		},
	}
	if cfg.DefaultOfficeID == 0 {
		cfg.DefaultOfficeID = v.GetInt64("default_warehouse_id")
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = vendit.DefaultOAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = vendit.DefaultAPIURL
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.SubmissionMode == "" {
		cfg.SubmissionMode = "buffered"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		// stdout carries the state protocol
		cfg.Log.Output = "stderr"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.TokenTTL == 0 {
		cfg.Redis.TokenTTL = cache.DefaultTokenTTL
	}
	if cfg.Kafka.IdleTimeout == 0 {
		cfg.Kafka.IdleTimeout = 10 * time.Second
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "target-vendit"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "target-vendit"
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("key"); name != "" {
			return name
		}
		return fld.Name
	})
	return val
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalid, describe(fieldErrs[0]))
}

// describe renders a field error with its config key
func describe(e validator.FieldError) string {
	key := keyOf(e)
	switch e.Tag() {
	case "required":
		if key == "api_key" {
			return "missing required 'api_key' or 'vendit_api_key'"
		}
		return fmt.Sprintf("missing required '%s'", key)
	case "required_without":
		return fmt.Sprintf("missing '%s': provide 'token' directly, or 'username' and 'password' to obtain one via OAuth", key)
	case "required_with":
		return fmt.Sprintf("'%s' is required when '%s' is set", key, strings.ToLower(e.Param()))
	case "oneof":
		return fmt.Sprintf("'%s' must be one of [%s], got %v", key, e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("'%s' must be a URL, got %v", key, e.Value())
	case "gt", "gte", "lte":
		return fmt.Sprintf("'%s' must be %s %s, got %v", key, comparison(e.Tag()), e.Param(), e.Value())
	default:
		return fmt.Sprintf("'%s' failed '%s' validation", key, e.Tag())
	}
}

func keyOf(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func comparison(tag string) string {
	switch tag {
	case "gt":
		return ">"
	case "gte":
		return ">="
	default:
		return "<="
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitList accepts both a list and a single comma separated value
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// VenditConfig returns the client configuration
func (c *Config) VenditConfig() *vendit.Config {
	return &vendit.Config{
		APIKey:         c.APIKey,
		Token:          c.Token,
		Username:       c.Username,
		Password:       c.Password,
		OAuthURL:       c.OAuthURL,
		APIURL:         c.APIURL,
		TimeoutSeconds: c.TimeoutSeconds,
	}
}

// CacheConfig returns the token cache configuration
func (c *Config) CacheConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Host:     c.Redis.Host,
		Port:     c.Redis.Port,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TokenTTL: c.Redis.TokenTTL,
	}
}

// LoggerConfig returns the logger configuration
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	cfg.Output = c.Log.Output
	return cfg
}

// TracerConfig returns the tracer configuration
func (c *Config) TracerConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:           c.Telemetry.Enabled,
		CollectorEndpoint: c.Telemetry.CollectorEndpoint,
		SamplingRatio:     c.Telemetry.SamplingRatio,
		ServiceName:       c.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          c.Telemetry.Insecure,
		Logs:              c.Telemetry.Logs,
	}
}
