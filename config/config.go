package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // live-class
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"` // пусто — архив чата отключён
}

type Session struct {
	MaxRooms          int    `yaml:"maxRooms"`
	MaxParticipants   int    `yaml:"maxParticipants"`
	ReconnectGrace    string `yaml:"reconnectGrace"`    // "30s"
	EmptyRoomGrace    string `yaml:"emptyRoomGrace"`    // "30s"
	MaxChatMessageLen int    `yaml:"maxChatMessageLen"` // 4000
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Session  Session  `yaml:"session"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "live-class"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Session.MaxRooms <= 0 {
		c.Session.MaxRooms = 1024
	}
	if c.Session.MaxParticipants <= 0 {
		c.Session.MaxParticipants = 10
	}
	if c.Session.MaxChatMessageLen <= 0 {
		c.Session.MaxChatMessageLen = 4000
	}
	return nil
}

// ReconnectGraceDuration — grace-окно переподключения (default 30s).
func (c *Config) ReconnectGraceDuration() time.Duration {
	return parseDurationOr(30*time.Second, c.Session.ReconnectGrace)
}

// EmptyRoomGraceDuration — сколько пустая комната ждёт перед завершением.
func (c *Config) EmptyRoomGraceDuration() time.Duration {
	return parseDurationOr(30*time.Second, c.Session.EmptyRoomGrace)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
