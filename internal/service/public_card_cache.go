package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"bizcard/internal/domain"
)

// invalidationHold es cuánto tiempo una invalidación bloquea nuevas escrituras de la misma tarjeta.
// Una lectura de la base que empezó antes de la invalidación no puede volver a cachear la versión vieja
// mientras dure la marca.
const invalidationHold = 5 * time.Second

// PublicCardCache guarda la proyección pública de tarjetas para el endpoint sin sesión.
// Set no pisa una entrada vigente ni una invalidación reciente.
type PublicCardCache interface {
	Get(ctx context.Context, id string) (domain.PublicCard, bool, error)
	Set(ctx context.Context, card domain.PublicCard) error
	Invalidate(ctx context.Context, id string) error
}

type memoryPublicCardCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	hold  time.Duration
	now   func() time.Time
	items map[string]cachedPublicCard
}

type cachedPublicCard struct {
	card      domain.PublicCard
	tombstone bool
	expiresAt time.Time
}

func NewMemoryPublicCardCache(ttl time.Duration) PublicCardCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &memoryPublicCardCache{
		ttl:   ttl,
		hold:  invalidationHold,
		now:   func() time.Time { return time.Now().UTC() },
		items: make(map[string]cachedPublicCard),
	}
}

// live devuelve la entrada vigente, si la hay. Llamar con mu tomado.
func (c *memoryPublicCardCache) live(id string) (cachedPublicCard, bool) {
	item, ok := c.items[id]
	if !ok {
		return cachedPublicCard{}, false
	}
	if c.now().After(item.expiresAt) {
		delete(c.items, id)
		return cachedPublicCard{}, false
	}
	return item, true
}

func (c *memoryPublicCardCache) Get(_ context.Context, id string) (domain.PublicCard, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.live(id)
	if !ok || item.tombstone {
		return domain.PublicCard{}, false, nil
	}
	return item.card, true, nil
}

func (c *memoryPublicCardCache) Set(_ context.Context, card domain.PublicCard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live(card.ID); ok {
		return nil
	}
	c.items[card.ID] = cachedPublicCard{card: card, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *memoryPublicCardCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = cachedPublicCard{tombstone: true, expiresAt: c.now().Add(c.hold)}
	return nil
}

// redisTombstone marca una invalidación reciente; nunca es el JSON de una tarjeta.
const redisTombstone = "-"

type redisPublicCardCache struct {
	client redisKV
	ttl    time.Duration
	hold   time.Duration
	prefix string
}

func NewRedisPublicCardCache(client *redis.Client, ttl time.Duration) PublicCardCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisPublicCardCache{client: client, ttl: ttl, hold: invalidationHold, prefix: "bizcard:public-card:"}
}

func (c *redisPublicCardCache) Get(ctx context.Context, id string) (domain.PublicCard, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PublicCard{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	raw, err := c.client.Get(ctx, c.prefix+id).Result()
	if errors.Is(err, redis.Nil) || raw == redisTombstone {
		return domain.PublicCard{}, false, nil
	}
	if err != nil {
		return domain.PublicCard{}, false, err
	}
	var card domain.PublicCard
	if err := json.Unmarshal([]byte(raw), &card); err != nil {
		return domain.PublicCard{}, false, err
	}
	return card, true, nil
}

// Set usa SET NX: si una invalidación dejó su marca, la escritura se descarta.
func (c *redisPublicCardCache) Set(ctx context.Context, card domain.PublicCard) error {
	if strings.TrimSpace(card.ID) == "" {
		return nil
	}
	payload, err := json.Marshal(card)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return c.client.SetNX(ctx, c.prefix+card.ID, string(payload), c.ttl).Err()
}

func (c *redisPublicCardCache) Invalidate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return c.client.Set(ctx, c.prefix+id, redisTombstone, c.hold).Err()
}
