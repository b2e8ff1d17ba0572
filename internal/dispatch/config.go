package dispatch

import "fmt"

// Config holds dispatcher service configuration.
type Config struct {
	KafkaBrokers    string
	DispatchTopic   string
	ConsumerGroupID string
	PostgresDSN     string
	RedisAddr       string

	PushWebhookURL  string
	SMSGatewayURL   string
	SMSRecipients   string
	EmailFrom       string
	EmailRecipients string
}

// Validate checks that all required configuration values are present.
// Channel targets are optional; a channel without a target is simply not
// registered.
func (c *Config) Validate() error {
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka brokers cannot be empty")
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
