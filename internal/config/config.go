package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	Feed   FeedConfig   `yaml:"feed"`
	PubNub PubNubConfig `yaml:"pubnub"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token"`
}

type EngineConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	ArrivalEveryTicks int           `yaml:"arrival_every_ticks"`
	NotificationTicks int           `yaml:"notification_ticks"`
}

type FeedConfig struct {
	Cap int `yaml:"cap"`
}

// PubNubConfig carries the realtime-audio collaborator's keys. Both empty
// means the transport runs as a no-op.
type PubNubConfig struct {
	PublishKey   string `yaml:"publish_key"`
	SubscribeKey string `yaml:"subscribe_key"`
}

// Default returns the built-in configuration: 1s ticks, an arrival every 15
// ticks, notifications visible for 5 ticks, feed capped at 50.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Engine: EngineConfig{
			TickInterval:      time.Second,
			ArrivalEveryTicks: 15,
			NotificationTicks: 5,
		},
		Feed: FeedConfig{
			Cap: 50,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
