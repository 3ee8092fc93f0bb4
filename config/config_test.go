package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `server:
  address: ":9000"
  token: "secret"
planner:
  co2_ratio: 0.25
metrics:
  prometheus_port: ":2112"
  sinks:
    - type: "nop"
    - type: "influx"
      conf:
        url: "http://influx:8086"
        bucket: "plans"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  request_topic: "powerplan/request"
  events_topic: "powerplan/events"
  qos:
    response: 1
logging:
  level: "debug"
  file:
    path: "/var/log/powerplan/powerplan.log"
    max_backups: 3
sentry:
  dsn: "https://public@sentry.example.com/1"
  environment: "staging"
  traces_sample_rate: 0.1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"server.address", cfg.Server.Address, ":9000"},
		{"server.token", cfg.Server.Token, "secret"},
		{"server.read_timeout_seconds", cfg.Server.ReadTimeoutSeconds, 10},
		{"planner.co2_ratio", cfg.Planner.CO2Ratio, 0.25},
		{"planner.co2_default_price", cfg.Planner.CO2DefaultPrice, 20.0},
		{"metrics.prometheus_port", cfg.Metrics.PrometheusPort, ":2112"},
		{"metrics.sinks", len(cfg.Metrics.Sinks), 2},
		{"metrics.sinks[1].type", cfg.Metrics.Sinks[1].Type, "influx"},
		{"metrics.sinks[1].conf.bucket", cfg.Metrics.Sinks[1].Conf["bucket"], "plans"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.client_id", cfg.MQTT.ClientID, "cli"},
		{"mqtt.request_topic", cfg.MQTT.RequestTopic, "powerplan/request"},
		{"mqtt.response_prefix", cfg.MQTT.ResponsePrefix, "powerplan/productionplan/response"},
		{"mqtt.qos.response", cfg.MQTT.QoS["response"], byte(1)},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.file.path", cfg.Logging.File.Path, "/var/log/powerplan/powerplan.log"},
		{"logging.file.max_size_mb", cfg.Logging.File.MaxSizeMB, 10},
		{"logging.file.max_backups", cfg.Logging.File.MaxBackups, 3},
		{"sentry.environment", cfg.Sentry.Environment, "staging"},
		{"sentry.traces_sample_rate", cfg.Sentry.TracesSampleRate, 0.1},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"planner":{"co2_default_price":35},"logging":{"level":"warn"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 35.0, cfg.Planner.CO2DefaultPrice)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8888", cfg.Server.Address)
	assert.Equal(t, 0.3, cfg.Planner.CO2Ratio)
	assert.Equal(t, 20.0, cfg.Planner.CO2DefaultPrice)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.MQTT.Enabled())
	assert.Empty(t, cfg.MQTT.ClientID)
	assert.Empty(t, cfg.Logging.File.Path)
	assert.Empty(t, cfg.Sentry.DSN)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CO2_RATIO", "0.4")
	t.Setenv("CO2_COST_PER_TON", "25")
	t.Setenv("K_SERVER__ADDRESS", ":7000")
	path := writeFile(t, "config.yaml", "server:\n  address: \":9000\"\nplanner:\n  co2_ratio: 0.1\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, 0.4, cfg.Planner.CO2Ratio)
	assert.Equal(t, 25.0, cfg.Planner.CO2DefaultPrice)

	t.Setenv("K_PLANNER__CO2_RATIO", "0.5")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Planner.CO2Ratio, "K_ overrides win over legacy variables")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "logging:\n  level: verbose\n"))
	assert.ErrorContains(t, err, "logging")

	_, err = Load(writeFile(t, "neg.yaml", "planner:\n  co2_ratio: -1\n"))
	assert.ErrorContains(t, err, "planner")

	_, err = Load(writeFile(t, "logfile.yaml", "logging:\n  file:\n    max_backups: -1\n"))
	assert.ErrorContains(t, err, "logging")

	_, err = Load(writeFile(t, "sentry.yaml", "sentry:\n  traces_sample_rate: 2\n"))
	assert.ErrorContains(t, err, "sentry")

	_, err = Load(writeFile(t, "wild.yaml", "mqtt:\n  broker: tcp://b:1883\n  events_topic: \"a/#\"\n"))
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("../config.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":8888", cfg.Server.Address)
	assert.Equal(t, "powerplan.log", cfg.Logging.File.Path)
	assert.Equal(t, 5, cfg.Logging.File.MaxBackups)
	assert.False(t, cfg.MQTT.Enabled())
}
