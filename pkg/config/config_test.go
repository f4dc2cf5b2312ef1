package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, MissingProductSkip, cfg.MissingProductPolicy)
	assert.False(t, cfg.CompensateOnFailure)
	assert.Equal(t, 10, cfg.RecentActivityLimit)
	assert.Equal(t, "products", cfg.ProductTableName)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("FULFILLMENT_MISSING_PRODUCT_POLICY", "ABORT")
	t.Setenv("FULFILLMENT_COMPENSATE", "true")
	t.Setenv("LOW_STOCK_THRESHOLD", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, MissingProductAbort, cfg.MissingProductPolicy)
	assert.True(t, cfg.CompensateOnFailure)
	assert.Equal(t, 10, cfg.LowStockThreshold)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown policy", func(c *Config) { c.MissingProductPolicy = "retry" }},
		{"negative threshold", func(c *Config) { c.LowStockThreshold = -1 }},
		{"zero activity limit", func(c *Config) { c.RecentActivityLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{MissingProductPolicy: MissingProductSkip, RecentActivityLimit: 10}
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
