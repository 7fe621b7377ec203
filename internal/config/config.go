// Package config loads runtime settings from config.yaml and LUCKYDRAW_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Sync    SyncConfig
	Draw    DrawConfig
}

type ServerConfig struct {
	Port       int
	Mode       string
	AdminToken string
}

type StorageConfig struct {
	Driver          string
	SQLitePath      string
	DynamoTable     string
	DynamoRecordKey string
	DynamoEndpoint  string
	DynamoRegion    string
}

type SyncConfig struct {
	Interval time.Duration
}

type DrawConfig struct {
	TickInterval time.Duration
}

// New returns a viper instance with defaults, config file search paths and
// environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./")
	v.AddConfigPath("/etc/luckydraw/")
	v.SetEnvPrefix("LUCKYDRAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("admin.token", "")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlitePath", "luckydraw.db")
	v.SetDefault("storage.dynamoTable", "lottery")
	v.SetDefault("storage.dynamoRecordKey", "lottery_app")
	v.SetDefault("storage.dynamoEndpoint", "")
	v.SetDefault("storage.dynamoRegion", "")
	v.SetDefault("draw.tickInterval", 40*time.Millisecond)
	return v
}

// Load reads the config file if there is one and returns the settings.
// A missing config file is not an error; defaults and env apply.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		logger.Info("No config file found, using defaults and environment")
	} else {
		logger.Infof("Using config file %s", v.ConfigFileUsed())
	}
	return Read(v)
}

// Read builds a Config from an already populated viper instance.
func Read(v *viper.Viper) (*Config, error) {
	conf := &Config{
		Server: ServerConfig{
			Port:       v.GetInt("server.port"),
			Mode:       v.GetString("server.mode"),
			AdminToken: v.GetString("admin.token"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(v.GetString("storage.driver")),
			SQLitePath:      v.GetString("storage.sqlitePath"),
			DynamoTable:     v.GetString("storage.dynamoTable"),
			DynamoRecordKey: v.GetString("storage.dynamoRecordKey"),
			DynamoEndpoint:  v.GetString("storage.dynamoEndpoint"),
			DynamoRegion:    v.GetString("storage.dynamoRegion"),
		},
		Draw: DrawConfig{
			TickInterval: v.GetDuration("draw.tickInterval"),
		},
	}

	// The shared backend is the only one other operators write to, so it is
	// polled by default.
	if v.IsSet("sync.interval") {
		conf.Sync.Interval = v.GetDuration("sync.interval")
	} else if conf.Storage.Driver == DriverDynamoDB {
		conf.Sync.Interval = 2 * time.Second
	}

	switch conf.Storage.Driver {
	case DriverSQLite, DriverDynamoDB, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
	if conf.Server.Port <= 0 {
		return nil, fmt.Errorf("invalid server port %d", conf.Server.Port)
	}
	if conf.Draw.TickInterval <= 0 {
		return nil, fmt.Errorf("invalid draw tick interval %s", conf.Draw.TickInterval)
	}
	return conf, nil
}
