package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// RedisOptions builds client options for the balance cache from viper
func RedisOptions() *redis.Options {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 20)
	viper.SetDefault("redis.dial_timeout", 2*time.Second)

	return &redis.Options{
		Addr:        viper.GetString("redis.host") + ":" + viper.GetString("redis.port"),
		Password:    viper.GetString("redis.password"),
		DB:          viper.GetInt("redis.db"),
		PoolSize:    viper.GetInt("redis.pool_size"),
		DialTimeout: viper.GetDuration("redis.dial_timeout"),
	}
}

// InitRedis returns a connected client, or nil when Redis is unreachable.
// A nil client disables the balance cache.
func InitRedis(ctx context.Context) *redis.Client {
	opts := RedisOptions()
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("[DATABASE] Redis at %s unreachable, balance cache disabled: %v", opts.Addr, err)
		rdb.Close()
		return nil
	}

	log.Printf("[DATABASE] Redis connection established to %s", opts.Addr)
	return rdb
}
