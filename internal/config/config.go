package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "POLLSTER"

	defaultContractAddress = "SP237HRZEM03XCG4TJMYMBT0J0FPY90MS1HB48YTM"
	defaultContractName    = "pollster"
)

// ServeConfig holds configuration for the webhook server.
type ServeConfig struct {
	Host               string
	Port               int
	Environment        string
	Network            string
	ContractAddress    string
	ContractName       string
	WebhookPath        string
	WebhookToken       string
	BodyLimit          int64
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	StopOnHandlerError bool
	Out                string
	PGDSN              string
	StateFile          string
	MaxRetries         int
	RetryBackoff       time.Duration
	LogLevel           string
}

// Contract returns the fully qualified contract identifier.
func (c ServeConfig) Contract() string {
	return c.ContractAddress + "." + c.ContractName
}

// Addr returns the listen address.
func (c ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadServe merges .env, config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"port":                  3000,
		"environment":           "development",
		"network":               "mainnet",
		"contract-address":      defaultContractAddress,
		"contract-name":         defaultContractName,
		"webhook-path":          "/webhook",
		"body-limit":            int64(10 << 20),
		"read-timeout":          15 * time.Second,
		"write-timeout":         30 * time.Second,
		"shutdown-timeout":      10 * time.Second,
		"stop-on-handler-error": false,
		"max-retries":           3,
		"retry-backoff":         200 * time.Millisecond,
		"log-level":             "info",
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		Host:               v.GetString("host"),
		Port:               v.GetInt("port"),
		Environment:        v.GetString("environment"),
		Network:            strings.ToLower(strings.TrimSpace(v.GetString("network"))),
		ContractAddress:    v.GetString("contract-address"),
		ContractName:       v.GetString("contract-name"),
		WebhookPath:        v.GetString("webhook-path"),
		WebhookToken:       v.GetString("webhook-token"),
		BodyLimit:          v.GetInt64("body-limit"),
		ReadTimeout:        v.GetDuration("read-timeout"),
		WriteTimeout:       v.GetDuration("write-timeout"),
		ShutdownTimeout:    v.GetDuration("shutdown-timeout"),
		StopOnHandlerError: v.GetBool("stop-on-handler-error"),
		Out:                v.GetString("out"),
		PGDSN:              v.GetString("pg-dsn"),
		StateFile:          v.GetString("state-file"),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		LogLevel:           v.GetString("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return ServeConfig{}, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c ServeConfig) Validate() error {
	if c.Network != "mainnet" && c.Network != "testnet" {
		return fmt.Errorf("network must be either 'mainnet' or 'testnet', got %q", c.Network)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if !strings.HasPrefix(c.WebhookPath, "/") {
		return fmt.Errorf("webhook path must start with '/': %q", c.WebhookPath)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive")
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
