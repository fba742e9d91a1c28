package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the terminal services
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Candles   CandlesConfig   `mapstructure:"candles"`
	Book      BookConfig      `mapstructure:"book"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Content   ContentConfig   `mapstructure:"content"`
	Session   SessionConfig   `mapstructure:"session"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type SimulatorConfig struct {
	Symbols      []string      `mapstructure:"symbols"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type CandlesConfig struct {
	BucketMs int64 `mapstructure:"bucket_ms"`
	Capacity int   `mapstructure:"capacity"`
}

type BookConfig struct {
	Depth        int           `mapstructure:"depth"`
	Spread       float64       `mapstructure:"spread"`
	Step         float64       `mapstructure:"step"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	GroupID           string   `mapstructure:"group_id"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type ProcessorConfig struct {
	NumWorkers int `mapstructure:"num_workers"`
}

type GatewayConfig struct {
	ValidTickers []string `mapstructure:"valid_tickers"`
}

type ContentConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxPolls     int           `mapstructure:"max_polls"`
}

type SessionConfig struct {
	DemoBalance float64 `mapstructure:"demo_balance"`
	DemoEquity  float64 `mapstructure:"demo_equity"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults (12-Factor App: Dev/Prod Parity)
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")

	v.SetDefault("simulator.symbols", []string{
		"EURUSD", "GBPUSD", "USDJPY", "XAUUSD", "BTCUSD", "ETHUSD", "NAS100", "US30",
	})
	v.SetDefault("simulator.tick_interval", 100*time.Millisecond)

	v.SetDefault("candles.bucket_ms", int64(60_000))
	v.SetDefault("candles.capacity", 100)

	v.SetDefault("book.depth", 15)
	v.SetDefault("book.spread", 0.0002)
	v.SetDefault("book.step", 0.0001)
	v.SetDefault("book.tick_interval", 800*time.Millisecond)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.group_id", "aurora-processor-group")
	v.SetDefault("kafka.partitions", 4)
	v.SetDefault("kafka.replication_factor", 1)

	v.SetDefault("processor.num_workers", 4)

	v.SetDefault("gateway.valid_tickers", []string{
		"EURUSD", "GBPUSD", "USDJPY", "XAUUSD", "BTCUSD", "ETHUSD", "NAS100", "US30",
	})

	v.SetDefault("content.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("content.api_key", "")
	v.SetDefault("content.poll_interval", 10*time.Second)
	v.SetDefault("content.max_polls", 60)

	v.SetDefault("session.demo_balance", 250000.00)
	v.SetDefault("session.demo_equity", 250000.00)

	// 3. Configure Viper to read Environment Variables
	// This maps dot-notation to underscores (e.g., "app.port" -> "APP_PORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys
	// Crucial for Viper to map flat Env Vars (APP_PORT) to nested structs (App.Port)
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "simulator.symbols", "simulator.tick_interval")
	bindEnv(v, "candles.bucket_ms", "candles.capacity")
	bindEnv(v, "book.depth", "book.spread", "book.step", "book.tick_interval")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.brokers", "kafka.topic", "kafka.group_id", "kafka.partitions", "kafka.replication_factor")
	bindEnv(v, "processor.num_workers")
	bindEnv(v, "gateway.valid_tickers")
	bindEnv(v, "content.base_url", "content.api_key", "content.poll_interval", "content.max_polls")
	bindEnv(v, "session.demo_balance", "session.demo_equity")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	// 6. Basic Validation
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}
	if len(cfg.Simulator.Symbols) == 0 {
		return nil, fmt.Errorf("simulator symbols cannot be empty")
	}
	if cfg.Processor.NumWorkers <= 0 {
		return nil, fmt.Errorf("processor num_workers must be positive")
	}

	return &cfg, nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
