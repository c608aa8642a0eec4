// Package config provides configuration types and loading for crewcall.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration struct.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Notify    NotifyConfig    `json:"notify"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// DatabasePath returns the SQLite database location inside the data dir.
func (p PathsConfig) DatabasePath() string {
	return filepath.Join(p.DataDir, "crewcall.db")
}

// SchedulerConfig groups notification scheduler settings.
type SchedulerConfig struct {
	TickInterval time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	BatchSize    int           `json:"batchSize" envconfig:"BATCH_SIZE"`
}

// NotifyConfig groups notification transport settings. The structured log is
// always on; Slack and Kafka are additional transports.
type NotifyConfig struct {
	Slack SlackConfig `json:"slack"`
	Kafka KafkaConfig `json:"kafka"`
}

// SlackConfig configures the Slack notification transport.
type SlackConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"SLACK_ENABLED"`
	BotToken string `json:"botToken" envconfig:"SLACK_BOT_TOKEN"`
	Channel  string `json:"channel" envconfig:"SLACK_CHANNEL"`
}

// KafkaConfig configures the Kafka notification transport.
type KafkaConfig struct {
	Enabled bool     `json:"enabled" envconfig:"KAFKA_ENABLED"`
	Brokers []string `json:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic   string   `json:"topic" envconfig:"KAFKA_TOPIC"`
}

// DefaultConfig returns the defaults used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			TickInterval: 30 * time.Second,
			BatchSize:    100,
		},
		Notify: NotifyConfig{
			Kafka: KafkaConfig{Topic: "crewcall.notifications"},
		},
	}
}
