package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers token IDs that were logged out or rotated
// before their natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Consume revokes jti and reports whether this call was the one that
	// revoked it. Concurrent callers with the same jti see true at most once.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// RedisRevocationStore keeps revoked JTIs in Redis with a TTL matching the
// token's remaining lifetime, so entries clean themselves up.
type RedisRevocationStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, keyPrefix: "shop-admin:revoked:"}
}

// DialRedis opens a client and pings it.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := s.client.Get(ctx, s.keyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}

func (s *RedisRevocationStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" || ttl <= 0 {
		return false, nil
	}
	ok, err := s.client.SetNX(ctx, s.keyPrefix+jti, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return ok, nil
}

// MemoryRevocationStore is used when no Redis is configured. It is local
// to one process.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.revoked[jti] = s.now().Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) Consume(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" || ttl <= 0 {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	if _, ok := s.revoked[jti]; ok {
		return false, nil
	}
	s.revoked[jti] = s.now().Add(ttl)
	return true, nil
}

func (s *MemoryRevocationStore) pruneLocked() {
	now := s.now()
	for k, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, k)
		}
	}
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}

var (
	_ RevocationStore = (*RedisRevocationStore)(nil)
	_ RevocationStore = (*MemoryRevocationStore)(nil)
)
