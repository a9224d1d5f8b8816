package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"regenai-go/pkg/log"
	"regenai-go/pkg/tasks"
)

// MaxAttempts 是单个任务的最大处理次数，达到后提交 offset 放弃重试。
const MaxAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete indexer implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.MessageIndexTask) error
}

// AttemptCounter 记录任务失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// RedisAttempts 使用 Redis 计数，计数保留 24 小时。
type RedisAttempts struct {
	RDB *redis.Client
}

// Incr 实现 AttemptCounter。
func (r RedisAttempts) Incr(ctx context.Context, key string) (int64, error) {
	k := "kafka:attempts:" + key
	n, err := r.RDB.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	_ = r.RDB.Expire(ctx, k, 24*time.Hour).Err()
	return n, nil
}

// Reset 实现 AttemptCounter。
func (r RedisAttempts) Reset(ctx context.Context, key string) error {
	return r.RDB.Del(ctx, "kafka:attempts:"+key).Err()
}

// MemoryAttempts 是进程内计数，未配置 Redis 时使用。
type MemoryAttempts struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryAttempts 创建进程内计数器。
func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{counts: make(map[string]int64)}
}

// Incr 实现 AttemptCounter。
func (m *MemoryAttempts) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

// Reset 实现 AttemptCounter。
func (m *MemoryAttempts) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
	return nil
}

// 重试与读取失败后的等待时间。
const (
	defaultRetryDelay = 500 * time.Millisecond
	fetchErrorBackoff = 2 * time.Second
)

// Consumer 从 topic 读取消息索引任务并交给 TaskProcessor。
// 每条消息在进程内最多处理 MaxAttempts 次，之后无论成败都提交 offset。
type Consumer struct {
	reader     *kafka.Reader
	processor  TaskProcessor
	attempts   AttemptCounter
	retryDelay time.Duration
}

// NewConsumer 创建消费者。
func NewConsumer(brokers, topic, groupID string, processor TaskProcessor, attempts AttemptCounter) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  SplitBrokers(brokers),
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: r, processor: processor, attempts: attempts, retryDelay: defaultRetryDelay}
}

// Run 阻塞消费直到 ctx 取消。读取失败只记录日志并稍后重试。
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.reader.Config().Topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败，稍后重试", err)
			if !sleep(ctx, fetchErrorBackoff) {
				log.Info("Kafka 消费者已停止")
				return
			}
			continue
		}

		c.handle(ctx, m.Value)
		if ctx.Err() != nil {
			// 停机时未处理完的消息不提交，重启后重新消费
			log.Info("Kafka 消费者已停止")
			return
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handle 处理一条消息，失败时原地重试，返回实际调用 Process 的次数。
// 计数器跨重启累计：同一任务此前已失败的次数也计入 MaxAttempts。
func (c *Consumer) handle(ctx context.Context, value []byte) int {
	var task tasks.MessageIndexTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return 0
	}

	key := task.Key()
	calls := 0
	for {
		calls++
		err := c.processor.Process(ctx, task)
		if err == nil {
			log.Infof("消息索引任务处理成功: %s", key)
			_ = c.attempts.Reset(ctx, key)
			return calls
		}
		log.Errorf("处理消息索引任务失败: %s, 第 %d 次, error: %v", key, calls, err)

		attempts, incErr := c.attempts.Incr(ctx, key)
		if incErr != nil {
			log.Warnf("记录任务失败次数失败: %s, error: %v", key, incErr)
			attempts = int64(calls)
		}
		if attempts >= MaxAttempts {
			log.Errorf("消息索引任务多次失败(>=%d)，放弃: %s", MaxAttempts, key)
			_ = c.attempts.Reset(ctx, key)
			return calls
		}
		if !sleep(ctx, c.retryDelay) {
			return calls
		}
	}
}

// sleep 等待 d，ctx 先结束时返回 false。
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
