package store

import (
	"fmt"
	"time"

	"github.com/SavioJohny/delivery-website/pkg/database"
	"github.com/SavioJohny/delivery-website/pkg/log"
)

const (
	DriverMemory    = "memory"
	DriverGorm      = "gorm"
	DriverCassandra = "cassandra"
)

// CacheConfig configures the optional Redis transcript cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Options gathers the settings of every driver; only the selected one is read.
type Options struct {
	Driver    string
	Database  database.Config
	Cassandra CassandraConfig
	Cache     CacheConfig
}

// New builds the configured MessageStore, wrapped in a CachedStore when the
// cache is enabled.
func New(opts Options) (MessageStore, error) {
	l := log.L()

	var (
		base MessageStore
		err  error
	)
	switch opts.Driver {
	case "", DriverMemory:
		base = NewMemoryStore()

	case DriverGorm:
		db, dbErr := database.New(&opts.Database)
		if dbErr != nil {
			return nil, dbErr
		}
		base, err = NewGormStore(db)

	case DriverCassandra:
		session, sErr := NewCassandraSession(opts.Cassandra)
		if sErr != nil {
			return nil, sErr
		}
		base, err = NewCassandraStore(session, opts.Cassandra.EnsureSchema)

	default:
		return nil, fmt.Errorf("unsupported store driver: %s", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	l.Info().Str("driver", opts.Driver).Bool("cache", opts.Cache.Enabled).Msg("message store ready")

	if !opts.Cache.Enabled {
		return base, nil
	}

	cache, err := NewRedisTranscriptCache(opts.Cache.Redis, opts.Cache.Prefix)
	if err != nil {
		base.Close()
		return nil, err
	}
	return NewCachedStore(base, cache, opts.Cache.TTL), nil
}
