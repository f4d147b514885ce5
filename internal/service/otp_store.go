package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPEntry es un código pendiente de verificación para un email.
type OTPEntry struct {
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// OTPStore guarda códigos OTP pendientes hasta que el usuario inicia sesión.
// Los usuarios no existen hasta verificar el código.
type OTPStore interface {
	Put(ctx context.Context, email string, entry OTPEntry) error
	Get(ctx context.Context, email string) (OTPEntry, bool, error)
	Delete(ctx context.Context, email string) error
}

// otpRetention mantiene la entrada un poco más que su expiración para poder reportar ErrOTPExpired.
const otpRetention = 10 * time.Minute

type memoryOTPStore struct {
	mu    sync.Mutex
	items map[string]OTPEntry
}

func NewMemoryOTPStore() OTPStore {
	return &memoryOTPStore{items: make(map[string]OTPEntry)}
}

func (s *memoryOTPStore) Put(_ context.Context, email string, entry OTPEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[email] = entry
	return nil
}

func (s *memoryOTPStore) Get(_ context.Context, email string) (OTPEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[email]
	if !ok {
		return OTPEntry{}, false, nil
	}
	if time.Now().UTC().After(entry.ExpiresAt.Add(otpRetention)) {
		delete(s.items, email)
		return OTPEntry{}, false, nil
	}
	return entry, true, nil
}

func (s *memoryOTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
	return nil
}

type redisOTPStore struct {
	client redisKV
	prefix string
}

func NewRedisOTPStore(client *redis.Client) OTPStore {
	if client == nil {
		return nil
	}
	return &redisOTPStore{client: client, prefix: "bizcard:otp:"}
}

func (s *redisOTPStore) Put(ctx context.Context, email string, entry OTPEntry) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ttl := time.Until(entry.ExpiresAt) + otpRetention
	if ttl <= 0 {
		ttl = otpRetention
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+email, string(payload), ttl).Err()
}

func (s *redisOTPStore) Get(ctx context.Context, email string) (OTPEntry, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return OTPEntry{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	raw, err := s.client.Get(ctx, s.prefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return OTPEntry{}, false, nil
	}
	if err != nil {
		return OTPEntry{}, false, err
	}
	var entry OTPEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return OTPEntry{}, false, err
	}
	return entry, true, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+email).Err()
}
