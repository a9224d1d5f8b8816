// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"regenai-go/pkg/log"
	"regenai-go/pkg/tasks"
)

// Publisher 发布消息索引任务。
type Publisher interface {
	PublishMessageIndex(ctx context.Context, task tasks.MessageIndexTask) error
	Close() error
}

// NoopPublisher 在未配置 Kafka 时使用，丢弃所有任务。
type NoopPublisher struct{}

// PublishMessageIndex 实现 Publisher。
func (NoopPublisher) PublishMessageIndex(context.Context, tasks.MessageIndexTask) error { return nil }

// Close 实现 Publisher。
func (NoopPublisher) Close() error { return nil }

// Producer 是基于 kafka.Writer 的 Publisher。
type Producer struct {
	writer *kafka.Writer
}

// SplitBrokers 把逗号分隔的 broker 列表拆开。
func SplitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(brokers, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(SplitBrokers(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", topic)
	return &Producer{writer: w}
}

// PublishMessageIndex 发送一个消息索引任务到 Kafka。同一条消息的 key 相同。
func (p *Producer) PublishMessageIndex(ctx context.Context, task tasks.MessageIndexTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal message index task: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Key()),
		Value: taskBytes,
	})
}

// Close 刷新并关闭 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}
