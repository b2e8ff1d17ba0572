package lifecycle

import "fmt"

// Config holds lifecycle service configuration.
type Config struct {
	KafkaBrokers    string
	IntentsTopic    string
	DispatchTopic   string
	ConsumerGroupID string
	PostgresDSN     string
	RedisAddr       string
}

// Validate checks that all required configuration values are present.
func (c *Config) Validate() error {
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.IntentsTopic == "" {
		return fmt.Errorf("intents topic cannot be empty")
	}
	if c.DispatchTopic == "" {
		return fmt.Errorf("dispatch topic cannot be empty")
	}
	if c.ConsumerGroupID == "" {
		return fmt.Errorf("consumer group ID cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN cannot be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	return nil
}
