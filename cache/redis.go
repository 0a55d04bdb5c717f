package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wfunc/typerace/models"
)

type redisRoomCache struct {
	client *redis.Client
}

// NewRedisRoomCache keeps records under room:<code> and lets redis expire them.
func NewRedisRoomCache(client *redis.Client) RoomCache {
	return &redisRoomCache{client: client}
}

// Dial connects to redis and checks the server answers.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (c *redisRoomCache) key(code string) string {
	return fmt.Sprintf("room:%s", code)
}

func (c *redisRoomCache) SetMeta(ctx context.Context, meta *models.RoomMeta, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(meta.Code), data, ttl).Err()
}

func (c *redisRoomCache) GetMeta(ctx context.Context, code string) (*models.RoomMeta, error) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta models.RoomMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", code, err)
	}
	return &meta, nil
}

func (c *redisRoomCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}

func (c *redisRoomCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
