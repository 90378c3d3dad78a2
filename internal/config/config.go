// Package config loads service configuration from an optional YAML file
// with environment overrides on top, so a container can run with nothing
// but env vars.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Auth   AuthConfig   `yaml:"auth"`
	Store  StoreConfig  `yaml:"store"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
	Bucket   string `yaml:"bucket"` // GridFS bucket for event images
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type StoreConfig struct {
	// PollInterval bounds how stale a live view can get when a write
	// happens outside this process.
	PollInterval time.Duration `yaml:"poll_interval"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "sauapp",
			Bucket:   "event_images",
		},
		MySQL: MySQLConfig{
			Host: "localhost",
			Port: "3306",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Store: StoreConfig{
			PollInterval: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path when one is given, then applies env
// overrides. An empty path is fine; env and defaults carry the whole
// config in that case.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret is not set (auth.jwt_secret or JWT_SECRET)")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Port, "PORT")
	set(&cfg.Mongo.URI, "MONGO_URI")
	set(&cfg.Mongo.Database, "MONGO_DB")
	set(&cfg.MySQL.Host, "MYSQL_HOST")
	set(&cfg.MySQL.Port, "MYSQL_PORT")
	set(&cfg.MySQL.Username, "MYSQL_USER")
	set(&cfg.MySQL.Password, "MYSQL_PASSWORD")
	set(&cfg.MySQL.Database, "MYSQL_DB")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("STORE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.PollInterval = d
		}
	}
}
