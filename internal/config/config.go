package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Detector DetectorConfig
	Dispatch DispatchConfig
	Channels ChannelsConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret         string `mapstructure:"secret"`
	ExpiryHours    int    `mapstructure:"expiry_hours"`
	ServiceKeyHash string `mapstructure:"service_key_hash"`
}

type DetectorConfig struct {
	// InactivityThreshold is the gap after which the inactivity rule fires.
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold"`
	// DedupWindow suppresses re-detection of the same trigger type per client.
	DedupWindow time.Duration `mapstructure:"dedup_window"`
	// DeviationRatio is the pattern_deviation tolerance against the baseline.
	DeviationRatio float64 `mapstructure:"deviation_ratio"`
	// DropRatio is the engagement_drop threshold against the prior period.
	DropRatio float64 `mapstructure:"drop_ratio"`
	// Period is the comparison window for missed_log/engagement rules.
	Period time.Duration `mapstructure:"period"`
	// Baseline is how far back the trailing baseline reaches.
	Baseline time.Duration `mapstructure:"baseline"`
}

// CapPolicy decides what happens when the daily limit is reached.
type CapPolicy string

const (
	// CapPolicyDefer schedules every over-cap recommendation for the next
	// window; nothing is dropped.
	CapPolicyDefer CapPolicy = "defer"
	// CapPolicyAllowHigh lets high-priority recommendations through the
	// cap; medium and low are deferred.
	CapPolicyAllowHigh CapPolicy = "allow_high"
)

type DispatchConfig struct {
	CapPolicy      CapPolicy `mapstructure:"cap_policy"`
	ChannelRetries int       `mapstructure:"channel_retries"`
}

type ChannelsConfig struct {
	SMSGatewayURL  string `mapstructure:"sms_gateway_url"`
	SMSAPIKey      string `mapstructure:"sms_api_key"`
	PushGatewayURL string `mapstructure:"push_gateway_url"`
	PushAPIKey     string `mapstructure:"push_api_key"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Dispatch.CapPolicy != CapPolicyDefer && config.Dispatch.CapPolicy != CapPolicyAllowHigh {
		return nil, fmt.Errorf("invalid dispatch.cap_policy %q", config.Dispatch.CapPolicy)
	}
	if config.Dispatch.ChannelRetries < 0 || config.Dispatch.ChannelRetries > 1 {
		return nil, fmt.Errorf("dispatch.channel_retries must be 0 or 1")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("detector.inactivity_threshold", 6*time.Hour)
	viper.SetDefault("detector.dedup_window", 24*time.Hour)
	viper.SetDefault("detector.deviation_ratio", 0.5)
	viper.SetDefault("detector.drop_ratio", 0.5)
	viper.SetDefault("detector.period", 24*time.Hour)
	viper.SetDefault("detector.baseline", 7*24*time.Hour)
	viper.SetDefault("dispatch.cap_policy", string(CapPolicyDefer))
	viper.SetDefault("dispatch.channel_retries", 1)
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("jwt.expiry_hours", 24)
}
