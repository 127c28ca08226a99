package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // "debug", "release", "test"
}

// ScraperConfig holds general crawl settings.
type ScraperConfig struct {
	Headless bool    `yaml:"headless"`
	Domain   string  `yaml:"domain"`
	MaxPages int     `yaml:"max_pages"`
	DelayLo  float64 `yaml:"delay_lo"`
	DelayHi  float64 `yaml:"delay_hi"`
	Workers  string  `yaml:"workers"` // "auto" or a number; sizes the watch pool
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig describes one scheduled re-scrape.
type WatchConfig struct {
	Keyword  string `yaml:"keyword"`
	Domain   string `yaml:"domain"`
	MaxPages int    `yaml:"max_pages"`
	Schedule string `yaml:"schedule"` // cron expression
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Database DatabaseConfig `yaml:"database"`
	Watches  []WatchConfig  `yaml:"watches"`
}

// LoadConfig reads and parses the YAML config file, filling defaults for
// anything left unset.
func LoadConfig(filepath string) *Config {
	cfg := &Config{}

	data, err := os.ReadFile(filepath)
	if err != nil {
		zap.L().Warn("config file not readable, using defaults", zap.String("path", filepath), zap.Error(err))
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		zap.L().Fatal("error unmarshalling config YAML", zap.String("path", filepath), zap.Error(err))
	}

	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Scraper.Domain == "" {
		c.Scraper.Domain = "amazon.com"
	}
	if c.Scraper.MaxPages < 1 {
		c.Scraper.MaxPages = 2
	}
	if c.Scraper.DelayLo <= 0 {
		c.Scraper.DelayLo = 2.5
	}
	if c.Scraper.DelayHi <= 0 {
		c.Scraper.DelayHi = 5.0
	}
	if c.Scraper.Workers == "" {
		c.Scraper.Workers = "auto"
	}
	if c.Database.Path == "" {
		c.Database.Path = "products.db"
	}
}
