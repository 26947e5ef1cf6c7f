package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	path := writeConfig(t, `
home_assistant:
  url: http://homeassistant.local:8123
  token: abc
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "http://homeassistant.local:8123", cfg.HomeAssistant.URL)
	assert.Equal(t, 500, cfg.Filter.DefaultLimit)
	assert.Equal(t, 50000, cfg.Filter.MaxLimit)
	assert.Equal(t, "spook", cfg.MQTT.TopicPrefix)
	assert.True(t, cfg.HomeAssistant.TrackStates)
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
home_assistant:
  token: abc
`)
	t.Setenv("HOME_ASSISTANT_URL", "http://10.0.0.2:8123")
	t.Setenv("PORT", "8080")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.2:8123", cfg.HomeAssistant.URL)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 3001},
			HomeAssistant: HomeAssistantConfig{
				URL:             "http://ha",
				Token:           "t",
				RequestTimeout:  "30s",
				RefreshDebounce: "1s",
				ReconnectDelay:  "5s",
			},
			Filter: FilterConfig{DefaultLimit: 500, MaxLimit: 50000},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "missing token", mutate: func(c *Config) { c.HomeAssistant.Token = "" }, wantErr: "home_assistant.token"},
		{name: "bad duration", mutate: func(c *Config) { c.HomeAssistant.RequestTimeout = "soon" }, wantErr: "home_assistant.request_timeout"},
		{name: "default above max", mutate: func(c *Config) { c.Filter.DefaultLimit = 60000 }, wantErr: "filter.default_limit"},
		{name: "auth without secret", mutate: func(c *Config) { c.Auth.Enabled = true }, wantErr: "auth.jwt_secret"},
		{name: "mqtt without broker", mutate: func(c *Config) { c.MQTT.Enabled = true }, wantErr: "mqtt.broker"},
		{name: "mqtt bad qos", mutate: func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker = "tcp://b:1883"; c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, Duration("2s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("-1s", time.Minute))
}
