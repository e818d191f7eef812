package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	JWT struct {
		Secret            string `yaml:"secret"`
		TTLMinutes        int    `yaml:"ttl_minutes"`
		RefreshTTLMinutes int    `yaml:"refresh_ttl_minutes"`
	} `yaml:"jwt"`

	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`

	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`

	Queue struct {
		// SingleActivePolicy restricts a user to one non-terminal entry
		// across all service points. Off = one per (user, service point).
		SingleActivePolicy bool `yaml:"single_active_policy"`

		// DefaultServiceMinutes is the per-entry wait estimate used until a
		// service point has recorded real service durations.
		DefaultServiceMinutes int `yaml:"default_service_minutes"`

		// PositionNotifyThreshold: a "you are almost up" notification is
		// created when an entry's position drops to this value or below.
		// 0 disables position notifications.
		PositionNotifyThreshold int `yaml:"position_notify_threshold"`
	} `yaml:"queue"`
}

func Load() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		panic(err)
	}

	if c.JWT.TTLMinutes == 0 {
		c.JWT.TTLMinutes = 60
	}
	if c.JWT.RefreshTTLMinutes == 0 {
		c.JWT.RefreshTTLMinutes = 60 * 24 * 7
	}
	if c.Queue.DefaultServiceMinutes == 0 {
		c.Queue.DefaultServiceMinutes = 5
	}

	return &c
}

func (c *Config) AccessTTL() time.Duration {
	return time.Minute * time.Duration(c.JWT.TTLMinutes)
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Minute * time.Duration(c.JWT.RefreshTTLMinutes)
}
