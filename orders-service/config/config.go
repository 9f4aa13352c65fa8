package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	WorkersSimulated = "simulated"
	WorkersHTTP      = "http"
)

type Config struct {
	ServiceName string    `mapstructure:"service_name"`
	Env         string    `mapstructure:"env"`
	Port        string    `mapstructure:"port"`
	Storage     string    `mapstructure:"storage"`
	Database    Database  `mapstructure:"database"`
	Redis       Redis     `mapstructure:"redis"`
	AWS         AWS       `mapstructure:"aws"`
	Saga        Saga      `mapstructure:"saga"`
	Workers     Workers   `mapstructure:"workers"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
}

type Database struct {
	Driver         string        `mapstructure:"driver"`
	URL            string        `mapstructure:"url"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Database       string        `mapstructure:"database"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type Redis struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
	OTel     bool          `mapstructure:"otel"`
}

type AWS struct {
	Region           string `mapstructure:"region"`
	EndpointSNS      string `mapstructure:"endpoint_sns"`
	EndpointSQS      string `mapstructure:"endpoint_sqs"`
	SNSTopicArn      string `mapstructure:"sns_topic_arn"`
	SQSQueueURL      string `mapstructure:"sqs_queue_url"`
	PublishEnabled   bool   `mapstructure:"publish_enabled"`
	SubscribeEnabled bool   `mapstructure:"subscribe_enabled"`
}

type Saga struct {
	StageTimeout        time.Duration `mapstructure:"stage_timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryCooldown       time.Duration `mapstructure:"retry_cooldown"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize      int           `mapstructure:"sweep_batch_size"`
	SweepConcurrency    int           `mapstructure:"sweep_concurrency"`
	StuckThreshold      time.Duration `mapstructure:"stuck_threshold"`
	DedupRetention      time.Duration `mapstructure:"dedup_retention"`
	DispatchConcurrency int           `mapstructure:"dispatch_concurrency"`
	ProducedBy          string        `mapstructure:"produced_by"`
}

type Workers struct {
	Mode         string             `mapstructure:"mode"`
	BaseURL      string             `mapstructure:"base_url"`
	RateLimit    float64            `mapstructure:"rate_limit"`
	Burst        int                `mapstructure:"burst"`
	FailureRates map[string]float64 `mapstructure:"failure_rates"`
	Latency      time.Duration      `mapstructure:"latency"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	LogLevel     string `mapstructure:"log_level"`
}

// ReadConfig loads <ENVIRONMENT>.json from the config package directory or ./config,
// with ORDERS_* environment variables taking precedence
func ReadConfig() (*Config, error) {
	paths := []string{".", "./config"}
	if _, filename, _, ok := runtime.Caller(0); ok {
		paths = append([]string{filepath.Dir(filename)}, paths...)
	}
	return readConfig(viper.New(), getConfigName(), paths...)
}

func readConfig(v *viper.Viper, name string, paths ...string) (*Config, error) {
	v.SetConfigName(name)
	v.SetConfigType("json")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("ORDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func getConfigName() string {
	return getEnv("ENVIRONMENT", "local")
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "orders-service")
	v.SetDefault("env", getEnv("ENV", "local"))
	v.SetDefault("port", getEnv("PORT", "8080"))
	v.SetDefault("storage", StorageMemory)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", os.Getenv("DATABASE_URL"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "order_saga")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.connect_timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", getEnv("REDIS_ADDR", "localhost:6379"))
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dedup_ttl", 24*time.Hour)
	v.SetDefault("redis.otel", true)

	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.endpoint_sns", getEnv("AWS_ENDPOINT_URL_SNS", ""))
	v.SetDefault("aws.endpoint_sqs", getEnv("AWS_ENDPOINT_URL_SQS", ""))
	v.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", ""))
	v.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", ""))
	v.SetDefault("aws.publish_enabled", false)
	v.SetDefault("aws.subscribe_enabled", false)

	v.SetDefault("saga.stage_timeout", 5*time.Second)
	v.SetDefault("saga.max_retries", 3)
	v.SetDefault("saga.retry_cooldown", 60*time.Second)
	v.SetDefault("saga.sweep_interval", 15*time.Second)
	v.SetDefault("saga.sweep_batch_size", 10)
	v.SetDefault("saga.sweep_concurrency", 4)
	v.SetDefault("saga.stuck_threshold", 5*time.Minute)
	v.SetDefault("saga.dedup_retention", 24*time.Hour)
	v.SetDefault("saga.dispatch_concurrency", 64)
	v.SetDefault("saga.produced_by", "orders-service")

	v.SetDefault("workers.mode", WorkersSimulated)
	v.SetDefault("workers.base_url", "")
	v.SetDefault("workers.rate_limit", 0)
	v.SetDefault("workers.burst", 10)
	v.SetDefault("workers.failure_rates", map[string]float64{})
	v.SetDefault("workers.latency", 0)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.otlp_endpoint", getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	v.SetDefault("telemetry.log_level", "info")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate rejects settings the saga cannot run with
func (c *Config) Validate() error {
	var problems []string

	if c.Port == "" {
		problems = append(problems, "port is required")
	}
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		problems = append(problems, fmt.Sprintf("storage must be %q or %q", StorageMemory, StoragePostgres))
	}
	if c.Saga.StageTimeout <= 0 {
		problems = append(problems, "saga.stage_timeout must be positive")
	}
	if c.Saga.MaxRetries <= 0 {
		problems = append(problems, "saga.max_retries must be positive")
	}
	if c.Saga.RetryCooldown <= 0 {
		problems = append(problems, "saga.retry_cooldown must be positive")
	}
	if c.Saga.SweepInterval <= 0 {
		problems = append(problems, "saga.sweep_interval must be positive")
	}
	switch c.Workers.Mode {
	case WorkersSimulated:
	case WorkersHTTP:
		if c.Workers.BaseURL == "" {
			problems = append(problems, "workers.base_url is required in http mode")
		}
	default:
		problems = append(problems, fmt.Sprintf("workers.mode must be %q or %q", WorkersSimulated, WorkersHTTP))
	}
	for op, rate := range c.Workers.FailureRates {
		if rate < 0 || rate > 1 {
			problems = append(problems, fmt.Sprintf("workers.failure_rates.%s must be between 0 and 1", op))
		}
	}
	if c.Redis.Enabled && c.Redis.DedupTTL <= 0 {
		problems = append(problems, "redis.dedup_ttl must be positive")
	}
	if c.AWS.PublishEnabled && c.AWS.SNSTopicArn == "" {
		problems = append(problems, "aws.sns_topic_arn is required when publishing")
	}
	if c.AWS.SubscribeEnabled && c.AWS.SQSQueueURL == "" {
		problems = append(problems, "aws.sqs_queue_url is required when subscribing")
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
