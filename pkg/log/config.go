package log

import (
	"fmt"
	"strings"
)

// Config defines logging configuration.
type Config struct {
	Level        string `json:"level" yaml:"level" mapstructure:"level"`
	Format       string `json:"format" yaml:"format" mapstructure:"format"`
	EnableCaller bool   `json:"enable_caller" yaml:"enable_caller" mapstructure:"enable_caller"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "text"}
}

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// ApplyConfig creates a logger from a configuration.
func ApplyConfig(config *Config, options ...LoggerOption) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	opts := []LoggerOption{WithLevel(level)}
	switch strings.ToLower(config.Format) {
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{EnableCaller: config.EnableCaller}))
	case "text", "":
		opts = append(opts, WithFormatter(&TextFormatter{EnableCaller: config.EnableCaller}))
	default:
		return nil, fmt.Errorf("invalid log format: %s", config.Format)
	}

	return NewLogger(append(opts, options...)...), nil
}
