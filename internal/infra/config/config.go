package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Window    WindowSettings    `mapstructure:"window"`
	Upstream  UpstreamSettings  `mapstructure:"upstream"`
	Redis     RedisSettings     `mapstructure:"redis"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	CORS      CORSSettings      `mapstructure:"cors"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// WindowSettings configures the per-category sliding window.
type WindowSettings struct {
	Capacity int `mapstructure:"capacity"`
}

// UpstreamSettings configures the third-party number source.
type UpstreamSettings struct {
	BaseURL           string            `mapstructure:"base_url"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Token             string            `mapstructure:"token"`
	DegradationPolicy string            `mapstructure:"degradation_policy"`
	Resources         map[string]string `mapstructure:"resources"`
}

// RedisSettings configures the optional Redis connection backing the rate limiter.
type RedisSettings struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// RateLimitSettings configures the per-client sliding-window limit on number requests.
type RateLimitSettings struct {
	KeyPrefix          string        `mapstructure:"key_prefix"`
	WindowDuration     time.Duration `mapstructure:"window_duration"`
	NumbersMaxAttempts int           `mapstructure:"numbers_max_attempts"`
}

// KafkaSettings configures the window event producer. No brokers means events are only logged.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AVG")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"window.capacity",
		"upstream.base_url",
		"upstream.timeout",
		"upstream.token",
		"upstream.degradation_policy",
		"upstream.resources.p",
		"upstream.resources.f",
		"upstream.resources.e",
		"upstream.resources.r",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"rate_limit.key_prefix",
		"rate_limit.window_duration",
		"rate_limit.numbers_max_attempts",
		"kafka.brokers",
		"kafka.topic_prefix",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"cors.allowed_origins",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *AppConfig) Validate() error {
	if c.Window.Capacity < 1 {
		return errors.New("window.capacity must be at least 1")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return errors.New("upstream.base_url is required")
	}
	if _, err := domain.NewCategoryRegistry(c.Upstream.Resources); err != nil {
		return fmt.Errorf("upstream.resources: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "average-calculator")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 9876)

	v.SetDefault("window.capacity", domain.DefaultWindowCapacity)

	v.SetDefault("upstream.base_url", "http://20.244.56.144/evaluation-service/")
	v.SetDefault("upstream.timeout", "2000ms")
	v.SetDefault("upstream.token", "")
	v.SetDefault("upstream.degradation_policy", string(domain.DegradationPolicyModeLenient))
	for category, resource := range domain.DefaultResources {
		v.SetDefault("upstream.resources."+category.String(), resource)
	}

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("rate_limit.key_prefix", "avg:rate-limit")
	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.numbers_max_attempts", 120)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "avg")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "average-calculator")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AVG_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
