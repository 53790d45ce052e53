// Package config loads the YAML configuration shared by the avea CLI and the
// MQTT bridge.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pdf/goavea/common"
)

// Config is the root configuration structure
type Config struct {
	Bulb    BulbConfig    `yaml:"bulb"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Logging LoggingConfig `yaml:"logging"`
}

// BulbConfig identifies the bulb and bounds operations on it
type BulbConfig struct {
	// Address is the BLE address of the bulb, e.g. "7c:2f:80:aa:bb:cc"
	Address string `yaml:"address"`
	// ConnectTimeout bounds each connection attempt
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ResponseTimeout bounds the wait for each response, zero waits forever
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	// Timeout bounds each operation issued by the CLI
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig contains the bridge's broker settings
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

var logLevels = []string{`debug`, `info`, `warn`, `error`}

// Default returns the configuration used when no file is supplied
func Default() *Config {
	return &Config{
		Bulb: BulbConfig{
			ConnectTimeout:  common.DefaultConnectTimeout,
			ResponseTimeout: common.DefaultResponseTimeout,
			Timeout:         common.DefaultConnectTimeout + common.DefaultTimeout,
		},
		MQTT: MQTTConfig{
			Broker:      `tcp://localhost:1883`,
			ClientID:    `goavea`,
			TopicPrefix: `avea`,
			QoS:         1,
		},
		Logging: LoggingConfig{
			Level: `info`,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.  An
// empty path yields the defaults.  The result is not validated, callers apply
// their own overrides first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != `` {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides follows the pattern AVEA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(`AVEA_BULB_ADDRESS`); v != `` {
		cfg.Bulb.Address = v
	}
	if v := os.Getenv(`AVEA_MQTT_BROKER`); v != `` {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv(`AVEA_MQTT_USERNAME`); v != `` {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv(`AVEA_MQTT_PASSWORD`); v != `` {
		cfg.MQTT.Password = v
	}
}

// Validate checks the settings needed to talk to a bulb
func (c *Config) Validate() error {
	var errs []string

	if c.Bulb.Address == `` {
		errs = append(errs, `bulb.address is required`)
	}
	if c.Bulb.ConnectTimeout <= 0 {
		errs = append(errs, `bulb.connect_timeout must be positive`)
	}
	if c.Bulb.ResponseTimeout < 0 {
		errs = append(errs, `bulb.response_timeout must not be negative`)
	}
	if c.Bulb.Timeout <= 0 {
		errs = append(errs, `bulb.timeout must be positive`)
	}
	if !validLevel(c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("logging.level must be one of: [%s]", strings.Join(logLevels, `,`)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, `; `))
	}
	return nil
}

// ValidateMQTT additionally checks the bridge settings
func (c *Config) ValidateMQTT() error {
	var errs []string

	if c.MQTT.Broker == `` {
		errs = append(errs, `mqtt.broker is required`)
	}
	if c.MQTT.ClientID == `` {
		errs = append(errs, `mqtt.client_id is required`)
	}
	if c.MQTT.TopicPrefix == `` || strings.ContainsAny(c.MQTT.TopicPrefix, `+#`) {
		errs = append(errs, `mqtt.topic_prefix must be set and contain no wildcards`)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, `mqtt.qos must be 0, 1, or 2`)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, `; `))
	}
	return nil
}

func validLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}
