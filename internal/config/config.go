package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	DB      DBConfig      `mapstructure:"database"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects where the client keeps its tokens: file, redis, etcd or
// memory.
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type LogConfig struct {
	Env string `mapstructure:"env"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ServerConfig drives the development API server.
type ServerConfig struct {
	Environment       string   `mapstructure:"environment"`
	Port              string   `mapstructure:"port"`
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	RequestsPerSecond int      `mapstructure:"requests_per_second"`
	// RefreshRegistry is "memory", "redis" or "etcd".
	RefreshRegistry string `mapstructure:"refresh_registry"`
}

// DBConfig selects the development server's store: memory, sqlite or mysql.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	SigningKey      string        `mapstructure:"signing_key"`
}

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendEtcd   = "etcd"
	BackendMemory = "memory"

	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.path", defaultTokenPath())
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("etcd.endpoints", []string{"localhost:2379"})
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("log.env", "dev")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.requests_per_second", 5)
	v.SetDefault("server.refresh_registry", "memory")
	v.SetDefault("auth.access_token_ttl", 5*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 24*time.Hour)
	v.SetDefault("auth.signing_key", "classroom-dev-signing-key")
	v.SetDefault("database.driver", BackendMemory)
	v.SetDefault("database.dsn", "classroom.db")
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "classroom", "tokens.json")
}

// Load reads config.yaml from the working directory, ./config or
// $HOME/.classroom, then applies CLASSROOM_* environment overrides
// (api.base_url -> CLASSROOM_API_BASE_URL). A missing file is fine; a broken
// one panics.
func Load() *Config {
	cfg, err := LoadFrom(viper.New(), "")
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadFrom is Load with an explicit viper instance and optional file path.
func LoadFrom(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".classroom"))
		}
	}

	v.SetEnvPrefix("CLASSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
