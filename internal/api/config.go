package api

import "fmt"

// Config holds alert API service configuration.
type Config struct {
	Port        string
	PostgresDSN string
	RedisAddr   string
}

// Validate checks that all required configuration values are present.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN cannot be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	return nil
}
