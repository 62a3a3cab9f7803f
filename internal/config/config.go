package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Crawler    CrawlerConfig  `mapstructure:"crawler"`
	Restart    RestartConfig  `mapstructure:"restart"`
	Export     ExportConfig   `mapstructure:"export"`
	Database   DatabaseConfig `mapstructure:"database"`
	Categories []string       `mapstructure:"categories"`
}

// CrawlerConfig holds everything the document fetcher and the parsers need
type CrawlerConfig struct {
	BaseURL              string            `mapstructure:"base_url"`
	CatalogPath          string            `mapstructure:"catalog_path"`
	ComponentID          string            `mapstructure:"component_id"`
	PageSize             int               `mapstructure:"page_size"`
	Timeout              int               `mapstructure:"timeout"`
	MaxRetries           int               `mapstructure:"max_retries"`
	MaxWorkers           int               `mapstructure:"max_workers"`
	MaxRequestsPerSecond int               `mapstructure:"max_requests_per_second"`
	DelayRange           []float64         `mapstructure:"delay_range"`
	Headers              map[string]string `mapstructure:"headers"`
}

// RestartConfig bounds the whole-run retry loop
type RestartConfig struct {
	RestartCount    int     `mapstructure:"restart_count"`
	IntervalMinutes float64 `mapstructure:"interval_minutes"`
}

// ExportConfig holds the CSV output location
type ExportConfig struct {
	OutputDirectory string `mapstructure:"output_directory"`
}

// DatabaseConfig holds the optional Postgres sink
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Load loads configuration from YAML file with environment variable
// overrides. A missing config.yaml is not an error; defaults apply.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.Crawler.DelayRange) != 2 {
		return fmt.Errorf("crawler.delay_range must hold exactly [min, max], got %v", c.Crawler.DelayRange)
	}
	if c.Crawler.DelayRange[0] < 0 || c.Crawler.DelayRange[0] > c.Crawler.DelayRange[1] {
		return fmt.Errorf("crawler.delay_range must satisfy 0 <= min <= max, got %v", c.Crawler.DelayRange)
	}
	if c.Crawler.MaxWorkers < 1 {
		return fmt.Errorf("crawler.max_workers must be at least 1, got %d", c.Crawler.MaxWorkers)
	}
	if c.Restart.RestartCount < 1 {
		return fmt.Errorf("restart.restart_count must be at least 1, got %d", c.Restart.RestartCount)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("crawler.base_url", "https://zootovary.ru")
	viper.SetDefault("crawler.catalog_path", "/catalog/")
	viper.SetDefault("crawler.component_id", "comp_d68034d8231659a2cf5539cfbbbd3945")
	viper.SetDefault("crawler.page_size", 50)
	viper.SetDefault("crawler.timeout", 30)
	viper.SetDefault("crawler.max_retries", 3)
	viper.SetDefault("crawler.max_workers", 1)
	viper.SetDefault("crawler.max_requests_per_second", 5)
	viper.SetDefault("crawler.delay_range", []float64{0, 0})
	viper.SetDefault("crawler.headers", map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/104.0.5112.124 YaBrowser/22.9.5.710 Yowser/2.5 Safari/537.36",
		"Accept-Language": "ru",
	})

	viper.SetDefault("restart.restart_count", 3)
	viper.SetDefault("restart.interval_minutes", 0.2)

	viper.SetDefault("export.output_directory", "out")

	viper.SetDefault("categories", []string{})

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "zootovary")
	viper.SetDefault("database.user", "zootovary_user")
	viper.SetDefault("database.password", "zootovary_pass")
}
