package repository

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist 记录已登出的 token，直到其自然过期。
type TokenBlacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

type redisTokenBlacklist struct {
	redisClient *redis.Client
}

// NewRedisTokenBlacklist 创建基于 Redis 的黑名单，key 为 blacklist:<token>。
func NewRedisTokenBlacklist(redisClient *redis.Client) TokenBlacklist {
	return &redisTokenBlacklist{redisClient: redisClient}
}

func (r *redisTokenBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.redisClient.Set(ctx, "blacklist:"+token, "true", ttl).Err()
}

func (r *redisTokenBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryTokenBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

// NewMemoryTokenBlacklist 创建进程内黑名单，未配置 Redis 时使用。
func NewMemoryTokenBlacklist() TokenBlacklist {
	return &memoryTokenBlacklist{tokens: make(map[string]time.Time), now: time.Now}
}

func (m *memoryTokenBlacklist) Add(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	// 顺便清理已过期的条目
	for t, exp := range m.tokens {
		if now.After(exp) {
			delete(m.tokens, t)
		}
	}
	m.tokens[token] = now.Add(ttl)
	return nil
}

func (m *memoryTokenBlacklist) Contains(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.tokens[token]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.tokens, token)
		return false, nil
	}
	return true, nil
}
