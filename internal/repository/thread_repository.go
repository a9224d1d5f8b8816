package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"regenai-go/internal/model"
)

// ThreadTTL 是线程记忆在 Redis 中的保留时间。
const ThreadTTL = 7 * 24 * time.Hour

// ThreadRepository 保存每个线程的对话记忆（最近若干轮）。
// 同一线程的并发写入没有加锁，后写覆盖先写。
type ThreadRepository interface {
	GetHistory(ctx context.Context, threadID string) ([]model.ChatTurn, error)
	SaveHistory(ctx context.Context, threadID string, turns []model.ChatTurn) error
}

type redisThreadRepository struct {
	redisClient *redis.Client
}

// NewRedisThreadRepository 创建基于 Redis 的 ThreadRepository。
func NewRedisThreadRepository(redisClient *redis.Client) ThreadRepository {
	return &redisThreadRepository{redisClient: redisClient}
}

func threadKey(threadID string) string {
	return fmt.Sprintf("thread:%s", threadID)
}

// GetHistory 从 Redis 获取线程记忆。
func (r *redisThreadRepository) GetHistory(ctx context.Context, threadID string) ([]model.ChatTurn, error) {
	jsonData, err := r.redisClient.Get(ctx, threadKey(threadID)).Result()
	if err == redis.Nil {
		return []model.ChatTurn{}, nil // No history yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread history: %w", err)
	}
	var turns []model.ChatTurn
	if err := json.Unmarshal([]byte(jsonData), &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread history: %w", err)
	}
	return turns, nil
}

// SaveHistory 覆盖写入线程记忆，并刷新过期时间。
func (r *redisThreadRepository) SaveHistory(ctx context.Context, threadID string, turns []model.ChatTurn) error {
	jsonData, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal thread history: %w", err)
	}
	if err := r.redisClient.Set(ctx, threadKey(threadID), jsonData, ThreadTTL).Err(); err != nil {
		return fmt.Errorf("failed to set thread history: %w", err)
	}
	return nil
}

type memoryThread struct {
	turns     []model.ChatTurn
	expiresAt time.Time
}

type memoryThreadRepository struct {
	mu      sync.RWMutex
	threads map[string]memoryThread
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryThreadRepository 创建进程内的 ThreadRepository，进程重启后记忆丢失。
// 与 Redis 一样，线程在 ThreadTTL 内没有写入即过期。
func NewMemoryThreadRepository() ThreadRepository {
	return &memoryThreadRepository{threads: make(map[string]memoryThread), ttl: ThreadTTL, now: time.Now}
}

func (r *memoryThreadRepository) GetHistory(_ context.Context, threadID string) ([]model.ChatTurn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	th, ok := r.threads[threadID]
	if !ok || r.now().After(th.expiresAt) {
		return []model.ChatTurn{}, nil
	}
	out := make([]model.ChatTurn, len(th.turns))
	copy(out, th.turns)
	return out, nil
}

func (r *memoryThreadRepository) SaveHistory(_ context.Context, threadID string, turns []model.ChatTurn) error {
	stored := make([]model.ChatTurn, len(turns))
	copy(stored, turns)
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	// 写入时顺便清理已过期的线程
	for id, th := range r.threads {
		if now.After(th.expiresAt) {
			delete(r.threads, id)
		}
	}
	r.threads[threadID] = memoryThread{turns: stored, expiresAt: now.Add(r.ttl)}
	return nil
}
