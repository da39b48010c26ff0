package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, int64(8192), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.False(t, cfg.Auth.RequireRole)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "chat-relay", cfg.Log.ServiceName)
	assert.Equal(t, 5.0, cfg.RateLimit.MessagesPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "local", cfg.Archive.Storage.Driver)
	assert.Equal(t, "./data/archive", cfg.Archive.Storage.Local.BasePath)
}

func TestFromViper_EnvAliases(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "gorm")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_FILE_PATH", "/tmp/chat.db")
	t.Setenv("CASSANDRA_HOSTS", "c1, c2")
	t.Setenv("ARCHIVE_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "chat-archive")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "gorm", cfg.Store.Driver)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/chat.db", cfg.Database.FilePath)
	assert.Equal(t, []string{"c1", "c2"}, cfg.Cassandra.Hosts)
	assert.Equal(t, "s3", cfg.Archive.Storage.Driver)
	assert.Equal(t, "chat-archive", cfg.Archive.Storage.S3.Bucket)

	opts := cfg.StoreOptions()
	assert.Equal(t, "gorm", opts.Driver)
	assert.Equal(t, "sqlite", opts.Database.Driver)
}
