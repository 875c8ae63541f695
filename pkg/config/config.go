package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Backend BackendConfig `mapstructure:"backend"`
	Views   ViewsConfig   `mapstructure:"views"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type GatewayConfig struct {
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	GRPCPort     int      `mapstructure:"grpc_port"`
	LoginPath    string   `mapstructure:"login_path"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	// JWTSecret, when set, is used to verify session tokens. Otherwise the
	// claims are read unverified and the backend remains the authority.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// BackendConfig points at the storefront REST backend. When Service is set
// and etcd is reachable the base URL is discovered instead.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Service string        `mapstructure:"service"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ViewsConfig struct {
	Debounce    time.Duration `mapstructure:"debounce"`
	Timezone    string        `mapstructure:"timezone"`
	StaleOnFail bool          `mapstructure:"stale_on_fail"`
}

type SessionConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	ToastTTL time.Duration `mapstructure:"toast_ttl"`

	// SecureCookie marks the session cookie Secure; turn it on behind TLS.
	SecureCookie bool `mapstructure:"secure_cookie"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
	MaxSizeMB   int      `mapstructure:"max_size_mb"`
	MaxBackups  int      `mapstructure:"max_backups"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "shopdash-gateway")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("gateway.grpc_port", 9090)
	v.SetDefault("gateway.login_path", "/login")
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("mongodb.collection", "dashboard_audit")
	v.SetDefault("backend.base_url", "http://localhost:8000/api/v2")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("views.debounce", 500*time.Millisecond)
	v.SetDefault("views.timezone", "Asia/Kolkata")
	v.SetDefault("views.stale_on_fail", true)
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.toast_ttl", 5*time.Second)
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
}

// Load reads the YAML file at configPath. Values may be overridden by
// SHOPDASH_* environment variables, which are also read from a .env file in
// the working directory when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("shopdash")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read config file
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Location resolves the configured timezone, falling back to UTC.
func (c *ViewsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
