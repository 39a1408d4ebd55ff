package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
		AllowOrigins    []string      `yaml:"allow_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	RateLimit struct {
		Enabled bool          `yaml:"enabled"`
		RPS     float64       `yaml:"rps" default:"2"`
		Burst   int           `yaml:"burst" default:"5"`
		IdleTTL time.Duration `yaml:"idle_ttl" default:"10m"`
	} `yaml:"ratelimit"`
	Synth struct {
		CorrelateMomentum bool `yaml:"correlate_momentum"`
	} `yaml:"synth"`
	Signals struct {
		RequestTimeout  time.Duration `yaml:"request_timeout" default:"45s"`
		EpsilonFraction float64       `yaml:"epsilon_fraction" default:"0.001"`
		HalfWidth       struct {
			Low    float64 `yaml:"low" default:"0.0025"`
			Medium float64 `yaml:"medium" default:"0.005"`
			High   float64 `yaml:"high" default:"0.01"`
		} `yaml:"half_width"`
		HistoryLookback time.Duration `yaml:"history_lookback" default:"24h"`
	} `yaml:"signals"`
	Market struct {
		BaseURL  string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
		Currency string        `yaml:"currency" default:"usd"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"30s"`
		RPS      float64       `yaml:"rps" default:"5"`
	} `yaml:"market"`
	News struct {
		BaseURL  string        `yaml:"base_url" default:"https://newsapi.org/v2/everything"`
		APIKey   string        `yaml:"api_key"`
		MaxItems int           `yaml:"max_items" default:"5"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
	} `yaml:"news"`
	Reasoning struct {
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model" default:"gpt-4o-mini"`
		Temperature float32       `yaml:"temperature" default:"0.3"`
		MaxTokens   int           `yaml:"max_tokens" default:"800"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
		MaxElapsed  time.Duration `yaml:"max_elapsed" default:"40s"`
		RPS         float64       `yaml:"rps" default:"1"`
	} `yaml:"reasoning"`
	Cache struct {
		MemoryTTL       time.Duration `yaml:"memory_ttl" default:"1m"`
		MaxEntries      int           `yaml:"max_entries" default:"1000"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
		Redis           struct {
			Enabled      bool          `yaml:"enabled"`
			Addr         string        `yaml:"addr" default:"localhost:6379"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"signalsmith"`
			PoolSize     int           `yaml:"pool_size" default:"10"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		SignalsTopic  string   `yaml:"signals_topic" default:"signals"`
		RequestsTopic string   `yaml:"requests_topic" default:"signal-requests"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"snappy"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"signalsmith"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"signal-requests-dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Journal struct {
		Backend  string `yaml:"backend" default:"memory"` // memory, clickhouse, postgres or none
		Capacity int    `yaml:"capacity" default:"1000"`  // memory backend only
		Table    string `yaml:"table" default:"signals"`
	} `yaml:"journal"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"signalsmith"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecTime  time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns" default:"10"`
	} `yaml:"postgres"`
	Notify struct {
		Telegram struct {
			Enabled  bool    `yaml:"enabled"`
			BotToken string  `yaml:"bot_token"`
			ChatIDs  []int64 `yaml:"chat_ids"`
		} `yaml:"telegram"`
	} `yaml:"notify"`
}

// Load reads a YAML configuration file and fills unset fields from struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes and applies defaults. It does not validate.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env when present, then the YAML file, then overrides secrets and
// endpoints from the environment, and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Reasoning.APIKey = v
	}
	if v := getenv("OPENAI_BASE_URL"); v != "" {
		c.Reasoning.BaseURL = v
	}
	if v := getenv("NEWS_API_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notify.Telegram.BotToken = v
		c.Notify.Telegram.Enabled = true
	}
	if v := getenv("TELEGRAM_CHAT_IDS"); v != "" {
		ids := make([]int64, 0)
		for _, s := range strings.Split(v, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		c.Notify.Telegram.ChatIDs = ids
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("JOURNAL_BACKEND"); v != "" {
		c.Journal.Backend = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	switch c.Journal.Backend {
	case "none", "memory", "clickhouse":
	case "postgres":
		if c.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("postgres.dsn is required when journal.backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.backend must be 'memory', 'clickhouse', 'postgres' or 'none', got '%s'", c.Journal.Backend))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled"))
	}
	if c.Notify.Telegram.Enabled && c.Notify.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled"))
	}
	if c.News.MaxItems <= 0 {
		errs = append(errs, fmt.Errorf("news.max_items must be positive"))
	}
	if c.Signals.EpsilonFraction <= 0 || c.Signals.EpsilonFraction >= 0.1 {
		errs = append(errs, fmt.Errorf("signals.epsilon_fraction must be in (0, 0.1), got %v", c.Signals.EpsilonFraction))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries must be positive"))
	}
	hw := c.Signals.HalfWidth
	if hw.Low <= 0 || hw.Medium <= 0 || hw.High <= 0 {
		errs = append(errs, fmt.Errorf("signals.half_width values must be positive"))
	}
	return errors.Join(errs...)
}
