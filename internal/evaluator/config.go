// Package evaluator consumes the measurement stream, runs the rule engine,
// and publishes trigger intents.
package evaluator

import "fmt"

// Config holds all configuration parameters for the evaluator service.
type Config struct {
	KafkaBrokers      string
	MeasurementsTopic string
	IntentsTopic      string
	ConsumerGroupID   string
	PostgresDSN       string
	RedisAddr         string
}

// Validate checks that all required configuration fields are set.
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.MeasurementsTopic == "" {
		return fmt.Errorf("measurements-topic cannot be empty")
	}
	if c.IntentsTopic == "" {
		return fmt.Errorf("intents-topic cannot be empty")
	}
	if c.ConsumerGroupID == "" {
		return fmt.Errorf("consumer-group-id cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis-addr cannot be empty")
	}
	return nil
}
