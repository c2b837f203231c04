package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Auction.OperationTimeout)
	assert.Equal(t, 3, cfg.Auction.TxMaxRetries)
	assert.Equal(t, 10, cfg.Events.MaxWorkers)
	assert.Equal(t, 100, cfg.Events.MaxCapacity)
	assert.Equal(t, "AUCTION_EVENTS", cfg.Nats.Stream)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, 3*time.Second, cfg.Redis.IOTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv(Port, "9090")
	t.Setenv(StoreDriver, "MEMORY")
	t.Setenv(AuctionOperationTimeout, "5s")
	t.Setenv(SweepInterval, "250ms")
	t.Setenv(RedisPoolSize, "32")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.ListenAddress())
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Auction.OperationTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Sweep.Interval)
	assert.Equal(t, 32, cfg.Redis.PoolSize)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Store:    StoreConfig{Driver: DriverPostgres},
			Database: DatabaseConfig{URL: "postgres://localhost/auctions"},
			Redis:    RedisConfig{Addr: "localhost:6379"},
			Nats:     NatsConfig{URL: "nats://localhost:4222"},
			Events:   EventsConfig{Enabled: true},
			Auction:  AuctionConfig{OperationTimeout: time.Second, TxMaxRetries: 1},
			Sweep:    SweepConfig{Enabled: true, Interval: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, wantErr: "unknown store driver"},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: "database URL"},
		{name: "memory without url", mutate: func(c *Config) { c.Store.Driver = DriverMemory; c.Database.URL = "" }},
		{name: "events without nats", mutate: func(c *Config) { c.Nats.URL = "" }, wantErr: "NATS URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.Auction.OperationTimeout = 0 }, wantErr: "timeout"},
		{name: "zero retries", mutate: func(c *Config) { c.Auction.TxMaxRetries = 0 }, wantErr: "retries"},
		{name: "zero sweep interval", mutate: func(c *Config) { c.Sweep.Interval = 0 }, wantErr: "sweep interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

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
