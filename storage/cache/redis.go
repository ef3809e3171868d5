package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/conference"
)

const (
	publishedPrefix = "conferences:published:"
	scanCount       = 100
)

// ConferenceCache keeps the public conference listings in redis.
type ConferenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ conference.Cache = (*ConferenceCache)(nil)

func NewRedisClient(conf core.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// Ping tests the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return errors.Wrap(client.Ping(ctx).Err(), "redis ping failed")
}

func NewConferenceCache(client *redis.Client, ttl time.Duration) *ConferenceCache {
	return &ConferenceCache{client: client, ttl: ttl}
}

func (c *ConferenceCache) GetPublished(ctx context.Context, key string) ([]conference.Conference, bool, error) {
	raw, err := c.client.Get(ctx, publishedPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "getting published conferences")
	}
	var confs []conference.Conference
	if err := json.Unmarshal(raw, &confs); err != nil {
		// a corrupt entry is a miss
		return nil, false, nil
	}
	return confs, true, nil
}

func (c *ConferenceCache) SetPublished(ctx context.Context, key string, confs []conference.Conference) error {
	raw, err := json.Marshal(confs)
	if err != nil {
		return errors.Wrap(err, "encoding conferences")
	}
	return errors.Wrap(c.client.Set(ctx, publishedPrefix+key, raw, c.ttl).Err(), "setting published conferences")
}

// InvalidatePublished drops every cached listing.
func (c *ConferenceCache) InvalidatePublished(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, publishedPrefix+"*", scanCount).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning published conferences")
	}
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "deleting published conferences")
}
