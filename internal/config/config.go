package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	HomeAssistant HomeAssistantConfig `mapstructure:"home_assistant"`
	Filter        FilterConfig        `mapstructure:"filter"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	MQTT          MQTTConfig          `mapstructure:"mqtt"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	WebSocket     WebSocketConfig     `mapstructure:"websocket"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type HomeAssistantConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`

	// RequestTimeout bounds a single WebSocket command round trip.
	RequestTimeout string `mapstructure:"request_timeout"`
	// ResyncSchedule is a cron spec for a full registry reload.
	ResyncSchedule string `mapstructure:"resync_schedule"`
	// RefreshDebounce coalesces bursts of registry update events.
	RefreshDebounce string `mapstructure:"refresh_debounce"`
	ReconnectDelay  string `mapstructure:"reconnect_delay"`
	TrackStates     bool   `mapstructure:"track_states"`
}

// FilterConfig holds the action defaults applied when the caller omits them
type FilterConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// MQTTConfig configures the optional MQTT request/response bridge
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

type WebSocketConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PingInterval int  `mapstructure:"ping_interval"`
	WriteTimeout int  `mapstructure:"write_timeout"`
}

func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from path, or from the default search
// locations when path is empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("home_assistant.url", "HOME_ASSISTANT_URL")
	v.BindEnv("home_assistant.token", "HOME_ASSISTANT_TOKEN", "SUPERVISOR_TOKEN")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("mqtt.broker", "MQTT_BROKER")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for completeness and correctness
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}

	if c.HomeAssistant.URL == "" {
		errors = append(errors, "home_assistant.url is required")
	}
	if c.HomeAssistant.Token == "" {
		errors = append(errors, "home_assistant.token is required")
	}
	for key, value := range map[string]string{
		"home_assistant.request_timeout":  c.HomeAssistant.RequestTimeout,
		"home_assistant.refresh_debounce": c.HomeAssistant.RefreshDebounce,
		"home_assistant.reconnect_delay":  c.HomeAssistant.ReconnectDelay,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			errors = append(errors, fmt.Sprintf("%s must be a duration: %v", key, err))
		}
	}

	if c.Filter.MaxLimit <= 0 {
		errors = append(errors, "filter.max_limit must be greater than 0")
	}
	if c.Filter.DefaultLimit <= 0 || c.Filter.DefaultLimit > c.Filter.MaxLimit {
		errors = append(errors, "filter.default_limit must be between 1 and filter.max_limit")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errors = append(errors, "database.path is required when the snapshot cache is enabled")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errors = append(errors, "auth.jwt_secret must be set when auth is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errors = append(errors, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errors = append(errors, "mqtt.qos must be 0, 1 or 2")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Duration parses a validated duration string, falling back to def.
func Duration(value string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return def
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "production")

	v.SetDefault("home_assistant.url", "http://supervisor/core")
	v.SetDefault("home_assistant.request_timeout", "30s")
	v.SetDefault("home_assistant.resync_schedule", "@every 1h")
	v.SetDefault("home_assistant.refresh_debounce", "500ms")
	v.SetDefault("home_assistant.reconnect_delay", "5s")
	v.SetDefault("home_assistant.track_states", true)

	v.SetDefault("filter.default_limit", 500)
	v.SetDefault("filter.max_limit", 50000)

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "./data/spook.db")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("auth.enabled", false)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.client_id", "spook")
	v.SetDefault("mqtt.topic_prefix", "spook")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.prefix", "spook")

	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.ping_interval", 30)
	v.SetDefault("websocket.write_timeout", 10)
}
