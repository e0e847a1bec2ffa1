// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Fio      FioConfig      `mapstructure:"fio"`
	Game     GameConfig     `mapstructure:"game"`
	Poll     PollConfig     `mapstructure:"poll"`
	Guard    GuardConfig    `mapstructure:"guard"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// FioConfig holds the ledger gateway configuration. GuessHandle and
// AdminHandle are the two distinguished sender identities; Admins is the
// allow-list of counterparties permitted to create games.
type FioConfig struct {
	APIURL       string   `mapstructure:"api_url"`
	PublicKey    string   `mapstructure:"public_key"`
	GuessHandle  string   `mapstructure:"guess_handle"`
	AdminHandle  string   `mapstructure:"admin_handle"`
	Admins       []string `mapstructure:"admins"`
	RequestLimit int      `mapstructure:"request_limit"`
	MaxFee       int64    `mapstructure:"max_fee"`
	TPID         string   `mapstructure:"tpid"`
}

// GameConfig holds game rule configuration.
type GameConfig struct {
	MaxPrize         int64 `mapstructure:"max_prize"`
	RecentGamesLimit int   `mapstructure:"recent_games_limit"`
}

// PollConfig holds the scheduler intervals: the fast guess poll, the slow
// game-creation poll, and the throttle for read-triggered passes.
type PollConfig struct {
	GuessInterval    time.Duration `mapstructure:"guess_interval"`
	CreationInterval time.Duration `mapstructure:"creation_interval"`
	ReadInterval     time.Duration `mapstructure:"read_interval"`
}

// GuardConfig holds single-flight guard configuration.
type GuardConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// IsAdmin checks if a counterparty handle is in the admin allow-list.
func (c *Config) IsAdmin(handle string) bool {
	for _, h := range c.Fio.Admins {
		if h == handle {
			return true
		}
	}
	return false
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. SERVER_ADDR, DATABASE_HOST, FIO_GUESS_HANDLE.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wordgame")
	v.SetDefault("database.name", "wordgame")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("fio.api_url", "https://test.fio.eosusa.io/v1/")
	v.SetDefault("fio.request_limit", 100)
	v.SetDefault("fio.max_fee", int64(10000000000000))

	v.SetDefault("game.max_prize", 1000)
	v.SetDefault("game.recent_games_limit", 10)

	v.SetDefault("poll.guess_interval", "1m")
	v.SetDefault("poll.creation_interval", "15m")
	v.SetDefault("poll.read_interval", "3s")

	v.SetDefault("guard.stale_after", "5m")
}
