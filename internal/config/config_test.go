package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("POLL_ICAOS", "sbmq, SBBE,,sbmq")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, []string{"SBMQ", "SBBE"}, cfg.Poller.ICAOs)
	assert.Equal(t, time.Minute, cfg.Poller.PollInterval)
	assert.Equal(t, "https://api-redemet.decea.mil.br", cfg.Redemet.BaseURL)
	assert.False(t, cfg.MQTT.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("SERVER_PORT", "70000")
	t.Setenv("POLL_ICAOS", "SBMQ,SB1")
	t.Setenv("NOTIFY_MIN_SEVERITY", "urgent")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `DB_DRIVER "mysql"`)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), `"SB1"`)
	assert.Contains(t, err.Error(), "NOTIFY_MIN_SEVERITY")
}

func TestSQLiteNeedsNoPassword(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidICAO(t *testing.T) {
	assert.True(t, ValidICAO("SBMQ"))
	assert.False(t, ValidICAO("sbmq"))
	assert.False(t, ValidICAO("SBMQX"))
	assert.False(t, ValidICAO(""))
}

func TestConnectionStrings(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "adwrng", Password: "pw", Database: "alerts", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=adwrng password=pw dbname=alerts sslmode=disable", db.DSN())

	broker := MQTTConfig{Broker: "broker.local", Port: 1883}
	assert.Equal(t, "tcp://broker.local:1883", broker.BrokerURL())
}
