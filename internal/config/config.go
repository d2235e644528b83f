package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Quiz struct {
		Grace string `yaml:"grace"`
	} `yaml:"quiz"`
	Scheduler struct {
		PollInterval string `yaml:"pollInterval"`
	} `yaml:"scheduler"`
	Blob struct {
		Dir     string `yaml:"dir"`
		BaseURL string `yaml:"baseUrl"`
		OSS     struct {
			Endpoint        string `yaml:"endpoint"`
			AccessKeyID     string `yaml:"accessKeyId"`
			AccessKeySecret string `yaml:"accessKeySecret"`
			Bucket          string `yaml:"bucket"`
		} `yaml:"oss"`
	} `yaml:"blob"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty
// or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
