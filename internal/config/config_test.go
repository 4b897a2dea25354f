package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  driver: mysql
kafka:
  brokers: ["k1:9092", "k2:9092"]
business:
  default_deposit_ratio: "0.20"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "mysql", cfg.Storage.Driver)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "0.20", cfg.Business.DefaultDepositRatio)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "auction-events", cfg.Kafka.Topic.AuctionEvents)
	require.Equal(t, 1024, cfg.Events.BufferSize)
	require.Equal(t, 1440, cfg.Business.OrderPayTimeoutMinutes)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "mysql:\n  host: db.local\n")
	t.Setenv("AUCTION_MYSQL_HOST", "db.override")
	t.Setenv("AUCTION_EVENTS_DRIVER", "none")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "db.override", cfg.MySQL.Host)
	require.Equal(t, "none", cfg.Events.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
