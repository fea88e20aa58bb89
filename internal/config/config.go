package config

import (
	"errors"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"chain-sentinel/internal/models"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the detection pipeline.
type Config struct {
	LogLevel   string
	HealthAddr string

	HTTP      HTTPConfig
	Kafka     KafkaConfig
	Database  DatabaseConfig
	Monitor   MonitorConfig
	Detectors DetectorConfig
	Risk      RiskConfig
	Channels  ChannelConfig

	Networks map[models.NetworkName]NetworkConfig
}

// HTTPConfig holds HTTP client configuration.
type HTTPConfig struct {
	Timeout time.Duration
}

// KafkaConfig holds Kafka configuration for the finding emitter.
type KafkaConfig struct {
	Enabled       bool
	BrokerAddress string
	Topic         string
	BatchSize     int
	BatchTimeout  time.Duration
}

// DatabaseConfig holds the optional postgres audit-trail configuration.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MonitorConfig holds ingestion and health-check tuning.
type MonitorConfig struct {
	PollInterval         time.Duration
	BlockPollInterval    time.Duration
	HealthCheckInterval  time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxAttempts int
	RingCapacity         int
	SeenCapacity         int
	StreamBuffer         int
	MaxEndpointErrors    int
}

// DetectorConfig holds the externally tunable detector thresholds. The
// confidence constants are calibrated placeholders, not an economic model.
type DetectorConfig struct {
	FrontRunMinGasDelta  *big.Int
	FrontRunConfidence   float64
	SandwichConfidence   float64
	ArbitrageConfidence  float64
	ArbitrageWindow      time.Duration
	ArbitrageGasBandPct  float64
	FlashLoanConfidence  float64
	ExchangeRouters      []string
	LendingProtocols     []string
	RapidTransferCount   int
	RapidTransferWindow  time.Duration
	HighValueThreshold   *big.Int
	BehavioralConfidence float64
}

// RiskConfig holds risk-scorer tuning.
type RiskConfig struct {
	HighGasThreshold *big.Int
	SampleWindow     int
}

// ChannelConfig holds notification channel credentials.
type ChannelConfig struct {
	SMTP    SMTPConfig
	SMS     SMSConfig
	Webhook WebhookConfig
}

// SMTPConfig holds email channel settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SMSConfig holds SMS provider settings.
type SMSConfig struct {
	ProviderURL string
	APIKey      string
	From        string
	To          []string
}

// WebhookConfig holds outbound webhook settings.
type WebhookConfig struct {
	URLs       []string
	SlackURL   string
	DiscordURL string
}

// NetworkConfig holds per-network RPC configuration. Multiple endpoints form
// the redundant set managed by the connection pool.
type NetworkConfig struct {
	RPCEndpoints    []string
	PushEndpoint    string // websocket URL for the push ingestion strategy
	APIKey          string
	RateLimit       float64
	ExplorerBaseURL string
}

// Load loads configuration from environment variables. Zero configured
// networks is a fatal configuration error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal, as env vars might be set externally
	}

	config := &Config{
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		HealthAddr: getEnv("HEALTH_ADDR", ":8090"),
		HTTP: HTTPConfig{
			Timeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "threat-findings"),
			BatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 10),
			BatchTimeout:  getEnvAsDuration("KAFKA_BATCH_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "chain_sentinel"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Monitor: MonitorConfig{
			PollInterval:         getEnvAsDuration("POLL_INTERVAL", 2*time.Second),
			BlockPollInterval:    getEnvAsDuration("BLOCK_POLL_INTERVAL", 10*time.Second),
			HealthCheckInterval:  getEnvAsDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
			ReconnectBaseDelay:   getEnvAsDuration("RECONNECT_BASE_DELAY", 5*time.Second),
			ReconnectMaxAttempts: getEnvAsInt("RECONNECT_MAX_ATTEMPTS", 10),
			RingCapacity:         getEnvAsInt("RING_CAPACITY", 1000),
			SeenCapacity:         getEnvAsInt("SEEN_CAPACITY", 50000),
			StreamBuffer:         getEnvAsInt("STREAM_BUFFER", 1024),
			MaxEndpointErrors:    getEnvAsInt("MAX_ENDPOINT_ERRORS", 5),
		},
		Detectors: DetectorConfig{
			FrontRunMinGasDelta:  getEnvAsBigInt("FRONTRUN_MIN_GAS_DELTA_WEI", big.NewInt(1_000_000_000)), // 1 gwei
			FrontRunConfidence:   getEnvAsFloat("FRONTRUN_CONFIDENCE", 0.85),
			SandwichConfidence:   getEnvAsFloat("SANDWICH_CONFIDENCE", 0.9),
			ArbitrageConfidence:  getEnvAsFloat("ARBITRAGE_CONFIDENCE", 0.75),
			ArbitrageWindow:      getEnvAsDuration("ARBITRAGE_WINDOW", 30*time.Second),
			ArbitrageGasBandPct:  getEnvAsFloat("ARBITRAGE_GAS_BAND_PCT", 10),
			FlashLoanConfidence:  getEnvAsFloat("FLASHLOAN_CONFIDENCE", 0.88),
			ExchangeRouters:      getEnvAsList("EXCHANGE_ROUTERS", defaultRouters),
			LendingProtocols:     getEnvAsList("LENDING_PROTOCOLS", defaultLendingProtocols),
			RapidTransferCount:   getEnvAsInt("RAPID_TRANSFER_COUNT", 10),
			RapidTransferWindow:  getEnvAsDuration("RAPID_TRANSFER_WINDOW", 60*time.Second),
			HighValueThreshold:   getEnvAsBigInt("HIGH_VALUE_THRESHOLD_WEI", weiFromEther(100)),
			BehavioralConfidence: getEnvAsFloat("BEHAVIORAL_CONFIDENCE", 0.7),
		},
		Risk: RiskConfig{
			HighGasThreshold: getEnvAsBigInt("HIGH_GAS_THRESHOLD_WEI", big.NewInt(100_000_000_000)), // 100 gwei
			SampleWindow:     getEnvAsInt("RISK_SAMPLE_WINDOW", 500),
		},
		Channels: ChannelConfig{
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getEnvAsInt("SMTP_PORT", 587),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
				From:     getEnv("SMTP_FROM", ""),
				To:       getEnvAsList("SMTP_TO", nil),
			},
			SMS: SMSConfig{
				ProviderURL: getEnv("SMS_PROVIDER_URL", ""),
				APIKey:      getEnv("SMS_API_KEY", ""),
				From:        getEnv("SMS_FROM", ""),
				To:          getEnvAsList("SMS_TO", nil),
			},
			Webhook: WebhookConfig{
				URLs:       getEnvAsList("WEBHOOK_URLS", nil),
				SlackURL:   getEnv("SLACK_WEBHOOK_URL", ""),
				DiscordURL: getEnv("DISCORD_WEBHOOK_URL", ""),
			},
		},
		Networks: make(map[models.NetworkName]NetworkConfig),
	}

	loadNetwork(config, models.Ethereum, "ETHEREUM", "https://etherscan.io/tx")
	loadNetwork(config, models.Polygon, "POLYGON", "https://polygonscan.com/tx")
	loadNetwork(config, models.BSC, "BSC", "https://bscscan.com/tx")
	loadNetwork(config, models.Arbitrum, "ARBITRUM", "https://arbiscan.io/tx")

	if len(config.Networks) == 0 {
		return nil, errors.New("no networks configured: set at least one <NETWORK>_RPC_ENDPOINTS variable")
	}

	return config, nil
}

func loadNetwork(config *Config, name models.NetworkName, prefix, explorerBaseURL string) {
	endpoints := getEnvAsList(prefix+"_RPC_ENDPOINTS", nil)
	if len(endpoints) == 0 {
		return
	}

	config.Networks[name] = NetworkConfig{
		RPCEndpoints:    endpoints,
		PushEndpoint:    getEnv(prefix+"_PUSH_ENDPOINT", ""),
		APIKey:          getEnv(prefix+"_API_KEY", ""),
		RateLimit:       getEnvAsFloat(prefix+"_RATE_LIMIT", 4),
		ExplorerBaseURL: explorerBaseURL,
	}
}

var defaultRouters = []string{
	"0x7a250d5630b4cf539739df2c5dacb4c659f2488d", // Uniswap V2
	"0xe592427a0aece92de3edee1f18e0157c05861564", // Uniswap V3
	"0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f", // SushiSwap
	"0x10ed43c718714eb63d5aa57b78b54704e256024e", // PancakeSwap
}

var defaultLendingProtocols = []string{
	"0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9", // Aave V2
	"0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2", // Aave V3
	"0x3d9819210a31b4961b30ef54be2aed79b9c9cd3b", // Compound
}

func weiFromEther(eth int64) *big.Int {
	wei := big.NewInt(eth)
	return wei.Mul(wei, big.NewInt(1_000_000_000_000_000_000))
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as seconds or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvAsList gets a comma-separated environment variable or returns a default value
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsBigInt gets an environment variable as a base-10 big integer or
// returns a default value
func getEnvAsBigInt(key string, defaultValue *big.Int) *big.Int {
	if value := os.Getenv(key); value != "" {
		if parsed, ok := new(big.Int).SetString(value, 10); ok {
			return parsed
		}
	}
	return defaultValue
}
