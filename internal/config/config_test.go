package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("TINBOX_GUARD_SECRET", "s3cret")
	t.Setenv("TINBOX_SERVER_PORT", "9090")
	t.Setenv("TINBOX_GSHEETS_SPREADSHEET_ID", "abc")
	t.Setenv("TINBOX_GSHEETS_CREDENTIALS_JSON", `{"type":"service_account"}`)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Guard.Secret)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5000, cfg.SQLite.BusyTimeoutMS)
	assert.Equal(t, "donation_data", cfg.XLSX.Sheet)
	assert.Equal(t, 10*time.Minute, cfg.Pending.TTL)
	assert.Equal(t, "memory", cfg.Pending.Driver)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "abc", cfg.GSheets.SpreadsheetID)
	assert.Equal(t, `{"type":"service_account"}`, cfg.GSheets.CredentialsJSON)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: xlsx
xlsx:
  path: /tmp/tins.xlsx
guard:
  secret: from-file
pending:
  ttl: 30s
log:
  level: debug
  format: text
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "xlsx", cfg.Store.Driver)
	assert.Equal(t, "/tmp/tins.xlsx", cfg.XLSX.Path)
	assert.Equal(t, "from-file", cfg.Guard.Secret)
	assert.Equal(t, 30*time.Second, cfg.Pending.TTL)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("TINBOX_GUARD_SECRET", "")
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:   StoreConfig{Driver: "sqlite"},
			Guard:   GuardConfig{Secret: "s3cret"},
			Pending: PendingConfig{Driver: "memory", TTL: time.Minute, SweepInterval: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: true},
		{name: "redis pending without redis", mutate: func(c *Config) { c.Pending.Driver = "redis" }, wantErr: true},
		{name: "redis pending with redis", mutate: func(c *Config) { c.Pending.Driver = "redis"; c.Redis.Enabled = true }},
		{name: "gsheets without id", mutate: func(c *Config) { c.Store.Driver = "gsheets" }, wantErr: true},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Kafka.Enabled = true }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Pending.TTL = 0 }, wantErr: true},
		{name: "zero sweep interval", mutate: func(c *Config) { c.Pending.SweepInterval = 0 }, wantErr: true},
		{name: "zero sweep interval with redis", mutate: func(c *Config) {
			c.Pending.Driver = "redis"
			c.Redis.Enabled = true
			c.Pending.SweepInterval = 0
		}},
		{name: "zero kafka poll interval", mutate: func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = []string{"127.0.0.1:9092"}
		}, wantErr: true},
		{name: "kafka with poll interval", mutate: func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = []string{"127.0.0.1:9092"}
			c.Kafka.PollInterval = time.Second
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
