package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type MissingProductPolicy string

const (
	// MissingProductSkip logs a line whose product cannot be resolved and
	// moves on to the next line.
	MissingProductSkip MissingProductPolicy = "skip"
	// MissingProductAbort fails the fulfillment attempt on such a line.
	MissingProductAbort MissingProductPolicy = "abort"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LocalMode bool   `envconfig:"LOCAL_MODE" default:"true"` // AWS 없이 로컬 실행 모드

	AWSRegion           string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	DynamoDBEndpoint    string `envconfig:"DYNAMODB_ENDPOINT"`
	ProductTableName    string `envconfig:"PRODUCT_TABLE_NAME" default:"products"`
	OrderTableName      string `envconfig:"ORDER_TABLE_NAME" default:"orders"`
	AdjustmentTableName string `envconfig:"ADJUSTMENT_TABLE_NAME" default:"stockAdjustments"`

	KafkaBrokers          []string `envconfig:"KAFKA_BROKERS"`
	KafkaChangeTopic      string   `envconfig:"KAFKA_CHANGE_TOPIC" default:"inventory-changes"`
	KafkaFulfillmentTopic string   `envconfig:"KAFKA_FULFILLMENT_TOPIC" default:"order-fulfillment-requests"`
	KafkaFailureTopic     string   `envconfig:"KAFKA_FAILURE_TOPIC" default:"order-fulfillment-failed"`
	KafkaGroupID          string   `envconfig:"KAFKA_GROUP_ID" default:"inventory-service"`

	MissingProductPolicy MissingProductPolicy `envconfig:"FULFILLMENT_MISSING_PRODUCT_POLICY" default:"skip"`
	CompensateOnFailure  bool                 `envconfig:"FULFILLMENT_COMPENSATE" default:"false"`

	// 0 classifies low stock by each product's reorder point
	LowStockThreshold   int `envconfig:"LOW_STOCK_THRESHOLD" default:"0"`
	RecentActivityLimit int `envconfig:"RECENT_ACTIVITY_LIMIT" default:"10"`

	TLSEnabled      bool   `envconfig:"TLS_ENABLED" default:"false"`
	SPIRESocketPath string `envconfig:"SPIRE_SOCKET_PATH" default:"unix:///run/spire/sockets/agent.sock"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch MissingProductPolicy(strings.ToLower(string(c.MissingProductPolicy))) {
	case MissingProductSkip, MissingProductAbort:
		c.MissingProductPolicy = MissingProductPolicy(strings.ToLower(string(c.MissingProductPolicy)))
	default:
		return fmt.Errorf("invalid FULFILLMENT_MISSING_PRODUCT_POLICY %q", c.MissingProductPolicy)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	if c.RecentActivityLimit <= 0 {
		return fmt.Errorf("RECENT_ACTIVITY_LIMIT must be positive")
	}
	return nil
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
