// Package config loads application settings from a TOML file, overlaid by .env / environment
// variables for secrets.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// MainConfig basic server settings
type MainConfig struct {
	AppName  string `toml:"appName"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Mode     string `toml:"mode"`     // "dev" or "release"
	NodeID   string `toml:"nodeId"`   // identifies this instance on the fanout bus
	ForceTLS bool   `toml:"forceTLS"` // redirect plain http to https
}

// DatabaseConfig relational store connection
type DatabaseConfig struct {
	Driver       string `toml:"driver"` // mysql | postgres | sqlite
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
	SqlitePath   string `toml:"sqlitePath"` // file path or "file::memory:?cache=shared"
	MaxOpenConns int    `toml:"maxOpenConns"`
	MaxIdleConns int    `toml:"maxIdleConns"`
}

// RedisConfig presence mirror and refresh-token registry
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	Db       int    `toml:"db"`
	Workers  int    `toml:"workers"` // async task workers
	Buffer   int    `toml:"buffer"`  // async task queue size
}

// LogConfig zap + lumberjack
type LogConfig struct {
	LogPath    string `toml:"logPath"`
	FileName   string `toml:"fileName"`
	MaxSize    int    `toml:"maxSize"`    // MB
	MaxBackups int    `toml:"maxBackups"` // files
	MaxAge     int    `toml:"maxAge"`     // days
	Level      string `toml:"level"`      // debug, info, warn, error
}

// BusConfig cross-node fanout transport
type BusConfig struct {
	MessageMode      string        `toml:"messageMode"` // channel | kafka | nats
	KafkaHostPort    string        `toml:"kafkaHostPort"`
	KafkaTopic       string        `toml:"kafkaTopic"`
	KafkaGroupPrefix string        `toml:"kafkaGroupPrefix"`
	Timeout          time.Duration `toml:"timeout"` // seconds
	NatsServers      []string      `toml:"natsServers"`
	NatsSubject      string        `toml:"natsSubject"`
}

// StaticSrcConfig blob store on local disk, served under /static
type StaticSrcConfig struct {
	StaticAvatarPath string `toml:"staticAvatarPath"`
	StaticFilePath   string `toml:"staticFilePath"`
	PublicBaseURL    string `toml:"publicBaseURL"` // prefix for returned URLs, e.g. https://cdn.example.com
	MaxUploadBytes   int64  `toml:"maxUploadBytes"`
}

// JWTConfig token settings
type JWTConfig struct {
	Secret             string `toml:"secret"`
	AccessTokenExpiry  int    `toml:"accessTokenExpiry"`  // minutes
	RefreshTokenExpiry int    `toml:"refreshTokenExpiry"` // hours
}

// SnowflakeConfig id generator
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 0-1023, unique per instance
}

// GatewayConfig websocket heartbeat and buffers
type GatewayConfig struct {
	PingInterval   int   `toml:"pingInterval"` // seconds
	PongWait       int   `toml:"pongWait"`     // seconds, idle timeout
	WriteWait      int   `toml:"writeWait"`    // seconds
	SendBuffer     int   `toml:"sendBuffer"`
	MaxMessageSize int64 `toml:"maxMessageSize"`
}

// Config aggregates all sections.
type Config struct {
	MainConfig      `toml:"mainConfig"`
	DatabaseConfig  `toml:"databaseConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	BusConfig       `toml:"busConfig"`
	StaticSrcConfig `toml:"staticSrcConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	GatewayConfig   `toml:"gatewayConfig"`
}

var (
	config     *Config
	configOnce sync.Once
)

// searchPaths candidate files, local overrides first
var searchPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

// LoadConfig decodes the first readable file from paths into a fresh Config, then applies
// defaults and environment overrides. A missing file is not an error: defaults alone give a
// runnable single-node sqlite setup.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	if p := os.Getenv("EVO_CONFIG"); p != "" {
		paths = append([]string{p}, paths...)
	}
	cfg := new(Config)
	var loadErr error = fmt.Errorf("could not find configuration file in any of the search paths")
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		loadErr = nil
		break
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, loadErr
}

// GetConfig returns the process-wide configuration, loading it on first use.
func GetConfig() *Config {
	configOnce.Do(func() {
		cfg, err := LoadConfig(searchPaths...)
		if err != nil && cfg == nil {
			// malformed file: run on defaults, main logs the decode error via LoadConfig
			cfg = new(Config)
			applyEnv(cfg)
			applyDefaults(cfg)
		}
		config = cfg
	})
	return config
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EVO_JWT_SECRET"); v != "" {
		cfg.JWTConfig.Secret = v
	}
	if v := os.Getenv("EVO_DB_DRIVER"); v != "" {
		cfg.DatabaseConfig.Driver = v
	}
	if v := os.Getenv("EVO_DB_PASSWORD"); v != "" {
		cfg.DatabaseConfig.Password = v
	}
	if v := os.Getenv("EVO_REDIS_PASSWORD"); v != "" {
		cfg.RedisConfig.Password = v
	}
	if v := os.Getenv("EVO_BUS_MODE"); v != "" {
		cfg.BusConfig.MessageMode = v
	}
}

func applyDefaults(cfg *Config) {
	m := &cfg.MainConfig
	if m.AppName == "" {
		m.AppName = "evo_chat_server"
	}
	if m.Host == "" {
		m.Host = "0.0.0.0"
	}
	if m.Port == 0 {
		m.Port = 8000
	}
	if m.Mode == "" {
		m.Mode = "dev"
	}
	if m.NodeID == "" {
		host, _ := os.Hostname()
		m.NodeID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	d := &cfg.DatabaseConfig
	d.Driver = strings.ToLower(d.Driver)
	if d.Driver == "" {
		d.Driver = "sqlite"
	}
	if d.Driver == "sqlite" && d.SqlitePath == "" {
		d.SqlitePath = "evo_chat.db"
	}
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = 50
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = 10
	}

	r := &cfg.RedisConfig
	if r.Port == 0 {
		r.Port = 6379
	}
	if r.Workers == 0 {
		r.Workers = 8
	}
	if r.Buffer == 0 {
		r.Buffer = 1024
	}

	l := &cfg.LogConfig
	if l.LogPath == "" {
		l.LogPath = "logs"
	}

	b := &cfg.BusConfig
	if b.MessageMode == "" {
		b.MessageMode = "channel"
	}
	if b.KafkaTopic == "" {
		b.KafkaTopic = "evo_fanout"
	}
	if b.KafkaGroupPrefix == "" {
		b.KafkaGroupPrefix = "evo-gateway"
	}
	if b.Timeout == 0 {
		b.Timeout = 1
	}
	if b.NatsSubject == "" {
		b.NatsSubject = "evo.fanout"
	}

	s := &cfg.StaticSrcConfig
	if s.StaticAvatarPath == "" {
		s.StaticAvatarPath = "static/avatars"
	}
	if s.StaticFilePath == "" {
		s.StaticFilePath = "static/files"
	}
	if s.MaxUploadBytes == 0 {
		s.MaxUploadBytes = 20 << 20
	}

	j := &cfg.JWTConfig
	if j.AccessTokenExpiry == 0 {
		j.AccessTokenExpiry = 60
	}
	if j.RefreshTokenExpiry == 0 {
		j.RefreshTokenExpiry = 168
	}

	g := &cfg.GatewayConfig
	if g.PingInterval == 0 {
		g.PingInterval = 30
	}
	if g.PongWait == 0 {
		g.PongWait = 60
	}
	if g.WriteWait == 0 {
		g.WriteWait = 10
	}
	if g.SendBuffer == 0 {
		g.SendBuffer = 256
	}
	if g.MaxMessageSize == 0 {
		g.MaxMessageSize = 8192
	}
}
