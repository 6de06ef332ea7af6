// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package config loads ld2450 settings from an optional file, LD2450_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
)

// EnvPrefix is prepended to environment variable names, e.g.
// LD2450_SERIAL_PORT.
const EnvPrefix = "LD2450"

// SerialConfig selects the local serial port.
type SerialConfig struct {
	Port        string        `mapstructure:"port" yaml:"port"`
	Baud        int           `mapstructure:"baud" yaml:"baud"`
	ByteTimeout time.Duration `mapstructure:"byteTimeout" yaml:"byteTimeout"`
}

// WebSocketConfig selects a remote serial bridge.
type WebSocketConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Username    string `mapstructure:"username" yaml:"username"`
	NoSSLVerify bool   `mapstructure:"noSSLVerify" yaml:"noSSLVerify"`
}

// LumberjackConfig configures rotating log files.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// DriverConfig tunes the protocol engine.
type DriverConfig struct {
	PowerUpDelay time.Duration `mapstructure:"powerUpDelay" yaml:"powerUpDelay"`
	PollInterval time.Duration `mapstructure:"pollInterval" yaml:"pollInterval"`
	MaxAttempts  int           `mapstructure:"maxAttempts" yaml:"maxAttempts"`
	MaxWaits     int           `mapstructure:"maxWaits" yaml:"maxWaits"`
	Decoding     string        `mapstructure:"decoding" yaml:"decoding"`
	LiveZones    bool          `mapstructure:"liveZones" yaml:"liveZones"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable" yaml:"enable"`
	Addr   string `mapstructure:"addr" yaml:"addr"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// MQTTConfig configures target publishing.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	ClientID string `mapstructure:"clientID" yaml:"clientID"`
	QoS      int    `mapstructure:"qos" yaml:"qos"`
	Retain   bool   `mapstructure:"retain" yaml:"retain"`
}

// Config is the complete configuration.
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial" yaml:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket" yaml:"websocket"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Driver    DriverConfig    `mapstructure:"driver" yaml:"driver"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	MQTT      MQTTConfig      `mapstructure:"mqtt" yaml:"mqtt"`
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"port":           "serial.port",
	"baud":           "serial.baud",
	"url":            "websocket.url",
	"username":       "websocket.username",
	"no-ssl-verify":  "websocket.noSSLVerify",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"log-file":       "logging.file.filename",
	"power-up-delay": "driver.powerUpDelay",
	"max-attempts":   "driver.maxAttempts",
	"max-waits":      "driver.maxWaits",
	"decoding":       "driver.decoding",
	"zones-live":     "driver.liveZones",
	"metrics-addr":   "metrics.addr",
	"broker":         "mqtt.broker",
	"topic":          "mqtt.topic",
	"client-id":      "mqtt.clientID",
}

// Load reads configuration from path (optional), the environment and flags.
// Flags that were not set on the command line do not override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ld2450")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", ld2450.DefaultBaudRate)
	v.SetDefault("serial.byteTimeout", ld2450.DefaultByteTimeout)

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "admin")
	v.SetDefault("websocket.noSSLVerify", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 50)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("driver.powerUpDelay", ld2450.DefaultPowerUpDelay)
	v.SetDefault("driver.pollInterval", ld2450.DefaultPollInterval)
	v.SetDefault("driver.maxAttempts", ld2450.DefaultMaxAttempts)
	v.SetDefault("driver.maxWaits", ld2450.DefaultMaxWaits)
	v.SetDefault("driver.decoding", ld2450.DecodingDocumented.String())
	v.SetDefault("driver.liveZones", false)

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "ld2450/targets")
	v.SetDefault("mqtt.clientID", "")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retain", false)
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Serial.Baud)
	}
	if c.Driver.MaxAttempts < 0 || c.Driver.MaxWaits < 0 {
		return fmt.Errorf("retry limits must not be negative (attempts=%d, waits=%d)", c.Driver.MaxAttempts, c.Driver.MaxWaits)
	}
	if _, err := ld2450.ParseCoordinateDecoding(c.Driver.Decoding); err != nil {
		return err
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid MQTT QoS %d", c.MQTT.QoS)
	}
	return nil
}

// ClientOptions converts the driver settings into ld2450.Options.
func (c *Config) ClientOptions(observer ld2450.Observer) ld2450.Options {
	decoding, _ := ld2450.ParseCoordinateDecoding(c.Driver.Decoding)
	return ld2450.Options{
		Observer:     observer,
		PollInterval: c.Driver.PollInterval,
		Retry: ld2450.RetryPolicy{
			MaxAttempts: c.Driver.MaxAttempts,
			MaxWaits:    c.Driver.MaxWaits,
		},
		Decoding:  decoding,
		LiveZones: c.Driver.LiveZones,
	}
}
