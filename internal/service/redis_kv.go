package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKV es el subconjunto de comandos de redis que usan los stores del servicio.
// *redis.Client lo satisface; los tests usan un doble en memoria.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const redisOpTimeout = 500 * time.Millisecond
