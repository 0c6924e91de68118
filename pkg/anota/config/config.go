// Package config loads the anota process configuration. Environment
// variables are canonical; an optional YAML file and an optional .env file
// provide defaults underneath them.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds everything the process needs at startup.
type Config struct {
	// WhatsApp Cloud API credentials.
	WhatsAppAccessToken   string `envconfig:"WHATSAPP_ACCESS_TOKEN" yaml:"whatsapp_access_token"`
	WhatsAppVerifyToken   string `envconfig:"WHATSAPP_VERIFY_TOKEN" yaml:"whatsapp_verify_token"`
	WhatsAppPhoneNumberID string `envconfig:"WHATSAPP_PHONE_NUMBER_ID" yaml:"whatsapp_phone_number_id"`
	GraphBaseURL          string `envconfig:"GRAPH_BASE_URL" yaml:"graph_base_url"`
	GraphAPIVersion       string `envconfig:"GRAPH_API_VERSION" yaml:"graph_api_version"`

	// Extractor credentials.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" yaml:"gemini_api_key"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" yaml:"gemini_model"`

	// Store.
	DBPath string `envconfig:"DB_PATH" yaml:"db_path"`

	// Session timezone: every firing and every digest is anchored here.
	Timezone string `envconfig:"SESSION_TZ" yaml:"timezone"`

	// HTTP surface.
	HTTPAddr string `envconfig:"HTTP_ADDR" yaml:"http_addr"`
	BaseURL  string `envconfig:"BASE_URL" yaml:"base_url"`

	// Intake worker pool.
	Workers   int `envconfig:"WORKERS" yaml:"workers"`
	QueueSize int `envconfig:"QUEUE_SIZE" yaml:"queue_size"`

	// Outbound call timeout and shutdown drain window.
	SendTimeout   time.Duration `envconfig:"SEND_TIMEOUT" yaml:"send_timeout"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" yaml:"shutdown_grace"`

	Debug     bool   `envconfig:"DEBUG" yaml:"debug"`
	LogLevel  string `envconfig:"LOG_LEVEL" yaml:"log_level"`
	LogFormat string `envconfig:"LOG_FORMAT" yaml:"log_format"`
}

// Default returns a Config with every optional field at its default.
func Default() Config {
	return Config{
		GraphBaseURL:    "https://graph.facebook.com",
		GraphAPIVersion: "v19.0",
		GeminiModel:     "gemini-2.0-flash",
		DBPath:          "./data/anota.db",
		Timezone:        "America/Costa_Rica",
		HTTPAddr:        ":8080",
		Workers:         4,
		QueueSize:       64,
		SendTimeout:     30 * time.Second,
		ShutdownGrace:   10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then a .env file (if present), then the environment itself.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	// godotenv does not overwrite variables already set in the environment.
	_ = godotenv.Load()

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.WhatsAppAccessToken == "" {
		errs = append(errs, errors.New("WHATSAPP_ACCESS_TOKEN is required"))
	}
	if c.WhatsAppVerifyToken == "" {
		errs = append(errs, errors.New("WHATSAPP_VERIFY_TOKEN is required"))
	}
	if c.WhatsAppPhoneNumberID == "" {
		errs = append(errs, errors.New("WHATSAPP_PHONE_NUMBER_ID is required"))
	}
	if c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid SESSION_TZ %q: %w", c.Timezone, err))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", c.QueueSize))
	}
	return errors.Join(errs...)
}

// Location resolves the configured session timezone. Validate must have
// passed first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
