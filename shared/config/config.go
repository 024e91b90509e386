package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Log            LogConfig            `yaml:"log"`
	Executor       ExecutorConfig       `yaml:"executor"`
	Health         HealthConfig         `yaml:"health"`
	Oracle         OracleConfig         `yaml:"oracle"`
	Broadcast      BroadcastConfig      `yaml:"broadcast"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Endpoints      []EndpointConfig     `yaml:"endpoints"`
	Signer         SignerConfig         `yaml:"signer"`
	HTTP           HTTPConfig           `yaml:"http"`
	GRPCHealth     GRPCHealthConfig     `yaml:"grpc_health"`
	Auth           AuthConfig           `yaml:"auth"`
	RateLimiter    RateLimiterConfig    `yaml:"rate_limiter"`
	Redis          RedisConfig          `yaml:"redis"`
	Postgres       PostgresConfig       `yaml:"postgres"`
	Kafka          KafkaConfig          `yaml:"kafka"`
	Tracing        TracingConfig        `yaml:"tracing"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
}

type ExecutorConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"       env:"EXECUTOR_TICK_INTERVAL"       env-default:"10s"`
	TickTimeout       time.Duration `yaml:"tick_timeout"        env:"EXECUTOR_TICK_TIMEOUT"        env-default:"30s"`
	MaxConcurrency    int           `yaml:"max_concurrency"     env:"EXECUTOR_MAX_CONCURRENCY"     env-default:"16"`
	WarnAfterFailures int           `yaml:"warn_after_failures" env:"EXECUTOR_WARN_AFTER_FAILURES" env-default:"3"`
	SlippageTolerance string        `yaml:"slippage_tolerance"  env:"EXECUTOR_SLIPPAGE_TOLERANCE"  env-default:"0.01"`
}

type HealthConfig struct {
	ProbeInterval time.Duration `yaml:"probe_interval" env:"HEALTH_PROBE_INTERVAL" env-default:"15s"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"  env:"HEALTH_PROBE_TIMEOUT"  env-default:"5s"`
}

type OracleConfig struct {
	Timeout   time.Duration `yaml:"timeout"    env:"ORACLE_TIMEOUT"    env-default:"5s"`
	RateLimit float64       `yaml:"rate_limit" env:"ORACLE_RATE_LIMIT" env-default:"20"`
	RateBurst int           `yaml:"rate_burst" env:"ORACLE_RATE_BURST" env-default:"5"`
}

type BroadcastConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"BROADCAST_TIMEOUT" env-default:"15s"`
	Mode    string        `yaml:"mode"    env:"BROADCAST_MODE"    env-default:"BROADCAST_MODE_SYNC"`
}

type CircuitBreakerConfig struct {
	MaxRequests uint32        `yaml:"max_requests" env:"CB_MAX_REQUESTS" env-default:"3"`
	Interval    time.Duration `yaml:"interval"     env:"CB_INTERVAL"     env-default:"10s"`
	Timeout     time.Duration `yaml:"timeout"      env:"CB_TIMEOUT"      env-default:"5s"`
	MaxFailures uint32        `yaml:"max_failures" env:"CB_MAX_FAILURES" env-default:"5"`
}

type EndpointConfig struct {
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"`
}

type SignerConfig struct {
	URL     string        `yaml:"url"     env:"SIGNER_URL"     env-default:"http://127.0.0.1:9090"`
	Timeout time.Duration `yaml:"timeout" env:"SIGNER_TIMEOUT" env-default:"5s"`
}

type HTTPConfig struct {
	Address        string        `yaml:"address"         env:"HTTP_ADDRESS"         env-default:":8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout"    env:"HTTP_READ_TIMEOUT"    env-default:"5s"`
	WriteTimeout   time.Duration `yaml:"write_timeout"   env:"HTTP_WRITE_TIMEOUT"   env-default:"10s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type GRPCHealthConfig struct {
	Address string `yaml:"address" env:"GRPC_HEALTH_ADDRESS" env-default:":50051"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
}

type RateLimiterConfig struct {
	PlaceOrder int64         `yaml:"place_order" env:"RATE_LIMIT_PLACE_ORDER" env-default:"30"`
	Window     time.Duration `yaml:"window"      env:"RATE_LIMIT_WINDOW"      env-default:"1m"`
}

type RedisConfig struct {
	Host              string        `yaml:"host"               env:"REDIS_HOST"`
	Port              int           `yaml:"port"               env:"REDIS_PORT"               env-default:"6379"`
	MaxIdle           int           `yaml:"max_idle"           env:"REDIS_MAX_IDLE"           env-default:"10"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"       env:"REDIS_IDLE_TIMEOUT"       env-default:"5m"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" env:"REDIS_CONNECTION_TIMEOUT" env-default:"2s"`
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

func (p PostgresConfig) Enabled() bool {
	return p.DSN != ""
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic"   env:"KAFKA_TOPIC"   env-default:"order-executions"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type TracingConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name"  env:"OTEL_SERVICE_NAME" env-default:"limit-order-executor"`
	SampleRate   float64 `yaml:"sample_rate"   env:"OTEL_SAMPLE_RATE"  env-default:"1"`
}

func (t TracingConfig) Enabled() bool {
	return t.OTLPEndpoint != ""
}

// Load reads an optional .env file, then the YAML config at path with
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}
	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("cleanenv.ReadConfig: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("config: at least one endpoint is required")
	}

	seen := make(map[string]struct{}, len(c.Endpoints))
	for _, endpoint := range c.Endpoints {
		if endpoint.URL == "" {
			return errors.New("config: endpoint url is empty")
		}
		switch endpoint.Kind {
		case "rpc", "rest", "grpc":
		default:
			return fmt.Errorf("config: endpoint %s has unknown kind %q", endpoint.URL, endpoint.Kind)
		}
		if _, dup := seen[endpoint.URL]; dup {
			return fmt.Errorf("config: endpoint %s listed twice", endpoint.URL)
		}
		seen[endpoint.URL] = struct{}{}
	}

	if c.Executor.TickInterval <= 0 {
		return errors.New("config: executor.tick_interval must be positive")
	}
	if c.Health.ProbeInterval <= 0 {
		return errors.New("config: health.probe_interval must be positive")
	}
	if c.Oracle.Timeout <= 0 {
		return errors.New("config: oracle.timeout must be positive")
	}

	return nil
}
