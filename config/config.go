package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	Modbus    ModbusConfig    `mapstructure:"modbus"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Health    HealthConfig    `mapstructure:"health"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type SerialConfig struct {
	Interface string        `mapstructure:"interface"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ReadDelay time.Duration `mapstructure:"read_delay"`
}

type ModbusConfig struct {
	ID uint8 `mapstructure:"id"`
}

type MQTTConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	// UpdateInterval is integer seconds, the unit of the add-on's
	// MQTT_UPDATE_INTERVAL option.
	UpdateInterval int `mapstructure:"update_interval"`
}

// Interval is the poll/publish cadence as a duration.
func (m MQTTConfig) Interval() time.Duration {
	return time.Duration(m.UpdateInterval) * time.Second
}

type DiscoveryConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Prefix                string `mapstructure:"prefix"`
	InvertChargeDischarge bool   `mapstructure:"invert_charge_discharge"`
}

type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the optional config file and the add-on environment
// variables. Env values win over the file, defaults fill the rest.
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/inverter-addon")
	}

	// Set defaults
	viper.SetDefault("serial.interface", "/dev/ttyUSB0")
	viper.SetDefault("serial.timeout", "1s")
	viper.SetDefault("serial.read_delay", "1s")
	viper.SetDefault("modbus.id", 1)
	viper.SetDefault("mqtt.host", "")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "mqtt")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.topic", "inverter")
	viper.SetDefault("mqtt.client_id", "inverter-addon")
	viper.SetDefault("mqtt.update_interval", 30)
	viper.SetDefault("discovery.enabled", true)
	viper.SetDefault("discovery.prefix", "homeassistant")
	viper.SetDefault("discovery.invert_charge_discharge", true)
	viper.SetDefault("health.enabled", true)
	viper.SetDefault("health.port", 8080)
	viper.SetDefault("logging.level", "info")

	// Environment variables as exposed by the add-on container.
	bindings := map[string]string{
		"serial.interface":                  "SERIAL_INTERFACE",
		"modbus.id":                         "MODBUS_ID",
		"mqtt.host":                         "MQTT_HOST",
		"mqtt.port":                         "MQTT_PORT",
		"mqtt.username":                     "MQTT_USERNAME",
		"mqtt.password":                     "MQTT_PASSWORD",
		"mqtt.topic":                        "MQTT_TOPIC",
		"mqtt.update_interval":              "MQTT_UPDATE_INTERVAL",
		"discovery.enabled":                 "ENABLE_HA_DISCOVERY_CONFIG",
		"discovery.prefix":                  "HA_DISCOVERY_PREFIX",
		"discovery.invert_charge_discharge": "INVERT_HA_DIS_CHARGE_MEASUREMENTS",
		"logging.level":                     "LOGGING_LEVEL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on startup conditions the process cannot recover
// from. Everything else has a default.
func (c *Config) Validate() error {
	if c.Serial.Interface == "" {
		return fmt.Errorf("serial interface is required (SERIAL_INTERFACE)")
	}
	if c.MQTT.Host == "" {
		return fmt.Errorf("mqtt host is required (MQTT_HOST)")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt port %d out of range", c.MQTT.Port)
	}
	if c.Modbus.ID == 0 {
		return fmt.Errorf("modbus id must be 1-255")
	}
	if c.MQTT.UpdateInterval <= 0 {
		return fmt.Errorf("mqtt update interval must be positive")
	}
	return nil
}

// MaxDataAge is how stale the last successful poll may be before the
// inverter is reported offline/unhealthy. Slack covers serial hiccups
// and startup.
func (c *Config) MaxDataAge() time.Duration {
	age := 3*c.MQTT.Interval() + 5*time.Second
	if age < 15*time.Second {
		age = 15 * time.Second
	}
	return age
}
