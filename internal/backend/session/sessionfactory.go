package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Config selects the session backend. TTL 0 keeps sessions until logout.
type Config struct {
	Type  string        `yaml:"type"`
	TTL   time.Duration `yaml:"ttl"`
	Redis RedisConfig   `yaml:"redis"`
}

// NewStore creates the configured store. The SQLite backend shares db;
// the Redis backend is pinged once so a wrong address fails at startup.
func NewStore(ctx context.Context, cfg Config, db *sql.DB) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteStore(db, cfg.TTL)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisStore(client, cfg.TTL, cfg.Redis.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Type)
	}
}
