package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		SignalsTopic string   `yaml:"signals_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Finnhub struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"finnhub"`
	ModelService struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"model_service"`
	Analyzers struct {
		Technical   float64 `yaml:"technical"`
		Fundamental float64 `yaml:"fundamental"`
		Sentiment   float64 `yaml:"sentiment"`
		AI          float64 `yaml:"ai"`
	} `yaml:"analyzers"`
	Pipeline struct {
		DecisionThreshold float64       `yaml:"decision_threshold"`
		AnalyzerTimeout   time.Duration `yaml:"analyzer_timeout"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
	} `yaml:"pipeline"`
	Risk struct {
		MaxPositionRatio float64 `yaml:"max_position_ratio"`
		MaxPortfolioRisk float64 `yaml:"max_portfolio_risk"`
		DailyLossLimit   float64 `yaml:"daily_loss_limit"`
		MaxDrawdownLimit float64 `yaml:"max_drawdown_limit"`
		MaxVolatility    float64 `yaml:"max_volatility"`
		LiquidityShare   float64 `yaml:"liquidity_share"`
	} `yaml:"risk"`
	Portfolio struct {
		Value     float64 `yaml:"value"`
		Positions []struct {
			Symbol string  `yaml:"symbol"`
			Value  float64 `yaml:"value"`
			Sector string  `yaml:"sector"`
		} `yaml:"positions"`
	} `yaml:"portfolio"`
	Consensus struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"consensus"`
	Market struct {
		Basket []string `yaml:"basket"`
	} `yaml:"market"`
	Scan struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"scan"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Enabled bool   `yaml:"enabled"`
		Name    string `yaml:"name"`
		Workers int    `yaml:"workers"`
	} `yaml:"queue"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Finnhub.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.ModelService.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Analyzers.Technical == 0 && c.Analyzers.Fundamental == 0 &&
		c.Analyzers.Sentiment == 0 && c.Analyzers.AI == 0 {
		c.Analyzers.Technical = 0.25
		c.Analyzers.Fundamental = 0.30
		c.Analyzers.Sentiment = 0.15
		c.Analyzers.AI = 0.30
	}
	if c.Pipeline.DecisionThreshold == 0 {
		c.Pipeline.DecisionThreshold = 0.6
	}
	if c.Pipeline.AnalyzerTimeout == 0 {
		c.Pipeline.AnalyzerTimeout = 2 * time.Second
	}
	if c.Consensus.Threshold == 0 {
		c.Consensus.Threshold = 0.6
	}
	if c.Risk.MaxPositionRatio == 0 {
		c.Risk.MaxPositionRatio = 0.1
	}
	if c.Risk.MaxPortfolioRisk == 0 {
		c.Risk.MaxPortfolioRisk = 0.3
	}
	if c.Risk.DailyLossLimit == 0 {
		c.Risk.DailyLossLimit = 0.03
	}
	if c.Risk.MaxDrawdownLimit == 0 {
		c.Risk.MaxDrawdownLimit = 0.15
	}
	if c.Risk.MaxVolatility == 0 {
		c.Risk.MaxVolatility = 0.6
	}
	if c.Risk.LiquidityShare == 0 {
		c.Risk.LiquidityShare = 0.01
	}
	if c.Scan.TTL == 0 {
		c.Scan.TTL = 5 * time.Minute
	}
	if c.Queue.Name == "" {
		c.Queue.Name = "tradepilot"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Kafka.SignalsTopic == "" {
		c.Kafka.SignalsTopic = "trading.signals"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Finnhub.Symbols) == 0 {
		return fmt.Errorf("finnhub.symbols cannot be empty")
	}
	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required")
	}
	sum := c.Analyzers.Technical + c.Analyzers.Fundamental + c.Analyzers.Sentiment + c.Analyzers.AI
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("analyzers weights must sum to 1.0, got %.4f", sum)
	}
	for _, w := range []float64{c.Analyzers.Technical, c.Analyzers.Fundamental, c.Analyzers.Sentiment, c.Analyzers.AI} {
		if w < 0 {
			return fmt.Errorf("analyzer weights must be non-negative")
		}
	}
	if c.Pipeline.DecisionThreshold <= 0.5 || c.Pipeline.DecisionThreshold > 1.0 {
		return fmt.Errorf("pipeline.decision_threshold must be in (0.5, 1.0], got %.2f", c.Pipeline.DecisionThreshold)
	}
	return nil
}
