// Package config loads the dimstore command configuration from defaults, an
// optional TOML or YAML file and DIMSTORE_* environment variables, in
// increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Backend names.
const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// EnvPrefix prefixes every environment variable, e.g. DIMSTORE_POSTGRES_DSN.
const EnvPrefix = "DIMSTORE"

// Config is the complete command configuration.
type Config struct {
	Backend  string         `mapstructure:"backend"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
	Log      LogConfig      `mapstructure:"log"`
	Bus      BusConfig      `mapstructure:"bus"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type DynamoDBConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint    string `mapstructure:"endpoint"`
	TablePrefix string `mapstructure:"table_prefix"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type BusConfig struct {
	// ReadTimeout bounds one read request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// SetDefaults registers the default of every key. Keys without a default
// are not picked up from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("sqlite.path", "dimstore.db")
	v.SetDefault("dynamodb.region", "")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.table_prefix", "")
	v.SetDefault("dynamodb.max_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("bus.read_timeout", 5*time.Second)
}

// NewViper returns a viper instance with defaults and environment binding.
// A non-empty file is read on top of the defaults.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", file)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: postgres.dsn is required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("config: sqlite.path is required for the sqlite backend")
		}
	case BackendDynamoDB:
		if c.DynamoDB.MaxAttempts < 1 {
			return errors.Newf("config: dynamodb.max_attempts must be positive, got %d", c.DynamoDB.MaxAttempts)
		}
	default:
		return errors.Newf("config: unknown backend %q, want one of %s",
			c.Backend, strings.Join(Backends(), ", "))
	}
	if c.Bus.ReadTimeout <= 0 {
		return errors.Newf("config: bus.read_timeout must be positive, got %s", c.Bus.ReadTimeout)
	}
	return nil
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendDynamoDB, BackendPostgres, BackendSQLite}
}
