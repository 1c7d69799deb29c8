package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Rotex CAN core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	CAN       CANConfig       `yaml:"can"`
	Engine    EngineConfig    `yaml:"engine"`
	Entities  EntitiesConfig  `yaml:"entities"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NodeConfig identifies this installation on MQTT and in logs.
type NodeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CANConfig selects and configures the bus adapter.
type CANConfig struct {
	// Driver is "socketcan" or "slcan". Default: socketcan
	Driver string `yaml:"driver"`

	// Interface is the SocketCAN interface name, e.g. "can0".
	Interface string `yaml:"interface"`

	// SerialPort is the SLCAN device, e.g. "/dev/ttyACM0".
	SerialPort string `yaml:"serial_port"`

	// BaudRate of the SLCAN serial link. Default: 115200
	BaudRate int `yaml:"baud_rate"`

	// Bitrate is the SLCAN speed code 0-8. Default: 4 (125 kbit/s)
	Bitrate int `yaml:"bitrate"`

	// RxBuffer is the capacity of the inbound frame channel.
	RxBuffer int `yaml:"rx_buffer"`
}

// EngineConfig contains polling and control-loop settings.
type EngineConfig struct {
	// RequestDelay is the minimum gap between two poll requests.
	RequestDelay time.Duration `yaml:"request_delay"`

	// RequestTimeout abandons an unanswered request. Zero or negative disables it.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Tick is the cadence of the cooperative loop.
	Tick time.Duration `yaml:"tick"`

	// RegulatorInterval is the minimum time between supply setpoint adjustments.
	RegulatorInterval time.Duration `yaml:"regulator_interval"`

	// SmoothingAlpha weights new samples of the smoothed derived values.
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`

	// DHWBoostTemperature is written by the DHW run command.
	DHWBoostTemperature float64 `yaml:"dhw_boost_temperature"`

	// DHWRestoreDelay is the time before the previous DHW target is restored.
	DHWRestoreDelay time.Duration `yaml:"dhw_restore_delay"`

	Offsets   TemperatureOffsets `yaml:"offsets"`
	MaxSpread SpreadLimits       `yaml:"max_spread"`
}

// TemperatureOffsets correct sensor readings before fault checks.
type TemperatureOffsets struct {
	TV   float64 `yaml:"tv"`
	TVBH float64 `yaml:"tvbh"`
	TR   float64 `yaml:"tr"`
}

// SpreadLimits bound the sensor spreads tolerated while the plant is idle.
type SpreadLimits struct {
	TVBHTV float64 `yaml:"tvbh_tv"`
	TVBHTR float64 `yaml:"tvbh_tr"`
}

// EntitiesConfig tailors the built-in entity catalog.
type EntitiesConfig struct {
	// Language selects option labels for presentation ("en" or "de").
	Language string `yaml:"language"`

	// Disabled lists entity IDs that are not registered.
	Disabled []string `yaml:"disabled"`

	// Intervals overrides the poll interval per entity ID.
	Intervals map[string]time.Duration `yaml:"intervals"`

	// DefaultInterval applies to entities without an explicit interval.
	DefaultInterval time.Duration `yaml:"default_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`

	// HealthInterval is the period of the bridge health message, in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. A .env file next to the YAML file, if present (never replaces set variables)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: ROTEXCAN_SECTION_KEY
// For example: ROTEXCAN_CAN_INTERFACE, ROTEXCAN_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ID:   "hpsu",
			Name: "Rotex HPSU",
		},
		CAN: CANConfig{
			Driver:    "socketcan",
			Interface: "can0",
			BaudRate:  115200,
			Bitrate:   4,
			RxBuffer:  64,
		},
		Engine: EngineConfig{
			RequestDelay:        250 * time.Millisecond,
			RequestTimeout:      3 * time.Second,
			Tick:                50 * time.Millisecond,
			RegulatorInterval:   30 * time.Second,
			SmoothingAlpha:      0.2,
			DHWBoostTemperature: 70,
			DHWRestoreDelay:     10 * time.Second,
			MaxSpread: SpreadLimits{
				TVBHTV: 0.3,
				TVBHTR: 0.3,
			},
		},
		Entities: EntitiesConfig{
			Language:        "en",
			DefaultInterval: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "./data/rotexcan.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "rotexcan-core",
			},
			QoS:         1,
			TopicPrefix: "rotexcan",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			HealthInterval: 30,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ROTEXCAN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// CAN
	if v := os.Getenv("ROTEXCAN_CAN_DRIVER"); v != "" {
		cfg.CAN.Driver = v
	}
	if v := os.Getenv("ROTEXCAN_CAN_INTERFACE"); v != "" {
		cfg.CAN.Interface = v
	}
	if v := os.Getenv("ROTEXCAN_CAN_SERIAL_PORT"); v != "" {
		cfg.CAN.SerialPort = v
	}

	// Database
	if v := os.Getenv("ROTEXCAN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ROTEXCAN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ROTEXCAN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ROTEXCAN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("ROTEXCAN_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ROTEXCAN_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("ROTEXCAN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("ROTEXCAN_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.ID == "" {
		errs = append(errs, "node.id is required")
	}

	// CAN validation
	switch strings.ToLower(c.CAN.Driver) {
	case "socketcan":
		if c.CAN.Interface == "" {
			errs = append(errs, "can.interface is required for the socketcan driver")
		}
	case "slcan":
		if c.CAN.SerialPort == "" {
			errs = append(errs, "can.serial_port is required for the slcan driver")
		}
		if c.CAN.Bitrate < 0 || c.CAN.Bitrate > 8 {
			errs = append(errs, "can.bitrate must be between 0 and 8")
		}
	default:
		errs = append(errs, fmt.Sprintf("can.driver %q must be socketcan or slcan", c.CAN.Driver))
	}

	// Engine validation
	if c.Engine.RequestDelay < 0 {
		errs = append(errs, "engine.request_delay must not be negative")
	}
	if c.Engine.Tick <= 0 {
		errs = append(errs, "engine.tick must be positive")
	}
	if c.Engine.SmoothingAlpha <= 0 || c.Engine.SmoothingAlpha > 1 {
		errs = append(errs, "engine.smoothing_alpha must be in (0, 1]")
	}

	// Entities validation
	switch c.Entities.Language {
	case "en", "de":
	default:
		errs = append(errs, fmt.Sprintf("entities.language %q must be en or de", c.Entities.Language))
	}
	for id, d := range c.Entities.Intervals {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("entities.intervals.%s must be positive", id))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
