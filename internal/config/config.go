package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Output   OutputConfig   `yaml:"output"`
	Chart    ChartConfig    `yaml:"chart"`
	Archive  ArchiveConfig  `yaml:"archive"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Upload   UploadConfig   `yaml:"upload"`
	Interval time.Duration  `yaml:"interval" validate:"gte=0"`
	LogLevel string         `yaml:"log_level" validate:"oneof=debug info warn error"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent"`
}

type FetchConfig struct {
	Workers int    `yaml:"workers" validate:"gte=1,lte=100"`
	OnError string `yaml:"on_error" validate:"oneof=abort skip"`
}

type OutputConfig struct {
	CSVPath   string `yaml:"csv_path" validate:"required"`
	ChartPath string `yaml:"chart_path" validate:"required"`
	Timezone  string `yaml:"timezone"`
}

// Location resolves Timezone, falling back to the process local zone.
func (o OutputConfig) Location() (*time.Location, error) {
	if o.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", o.Timezone, err)
	}
	return loc, nil
}

type ChartConfig struct {
	Top    int    `yaml:"top" validate:"gte=1"`
	Title  string `yaml:"title"`
	Width  int    `yaml:"width" validate:"gte=100"`
	Height int    `yaml:"height" validate:"gte=100"`
}

// ArchiveConfig enables the SQL snapshot archive when DSN is set.
type ArchiveConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=postgres sqlite"`
	DSN    string `yaml:"dsn"`
}

func (a ArchiveConfig) Enabled() bool {
	return a.DSN != ""
}

// RabbitMQConfig enables the record publisher when URL is set.
type RabbitMQConfig struct {
	URL        string `yaml:"url" validate:"omitempty,url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

// UploadConfig enables artifact upload when Bucket is set.
type UploadConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

func (u UploadConfig) Enabled() bool {
	return u.Bucket != ""
}

// Load reads the YAML file at path, expanding ${VAR} references from the
// environment and an optional .env file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://hacker-news.firebaseio.com/v0"
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "TopStories/1.0"
	}
	if c.Fetch.Workers == 0 {
		c.Fetch.Workers = 10
	}
	if c.Fetch.OnError == "" {
		c.Fetch.OnError = OnErrorAbort
	}
	if c.Output.CSVPath == "" {
		c.Output.CSVPath = "hacker_news_stories.csv"
	}
	if c.Output.ChartPath == "" {
		c.Output.ChartPath = "hacker_news_pie_chart.png"
	}
	if c.Chart.Top == 0 {
		c.Chart.Top = 10
	}
	if c.Chart.Title == "" {
		c.Chart.Title = "Distribution of Scores for Top Stories"
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = 1000
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 700
	}
	if c.Archive.Enabled() && c.Archive.Driver == "" {
		c.Archive.Driver = "postgres"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "topstories"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "stories"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "top_stories"
	}
	if c.Upload.Region == "" {
		c.Upload.Region = "us-east-1"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
