// Package indexer 把对话消息写入 Elasticsearch 全文索引。
package indexer

import (
	"context"
	"fmt"

	"regenai-go/pkg/es"
	"regenai-go/pkg/log"
	"regenai-go/pkg/tasks"
)

// MessageIndexer 写入单条消息文档。
type MessageIndexer interface {
	IndexMessage(ctx context.Context, doc es.MessageDocument) error
}

// Processor 处理 Kafka 中的消息索引任务。
type Processor struct {
	index MessageIndexer
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(index MessageIndexer) *Processor {
	return &Processor{index: index}
}

// Process 实现 kafka.TaskProcessor。
func (p *Processor) Process(ctx context.Context, task tasks.MessageIndexTask) error {
	if task.MessageID == 0 {
		return fmt.Errorf("message index task without message id")
	}
	doc := es.MessageDocument{
		MessageID:      task.MessageID,
		ConversationID: task.ConversationID,
		UserID:         task.UserID,
		Sender:         task.Sender,
		Content:        task.Content,
		CreatedAt:      task.CreatedAt,
	}
	if err := p.index.IndexMessage(ctx, doc); err != nil {
		return fmt.Errorf("索引消息 %d 失败: %w", task.MessageID, err)
	}
	log.Infof("[Indexer] 消息已写入索引, messageID: %d, conversationID: %d", task.MessageID, task.ConversationID)
	return nil
}

// InlinePublisher 在未配置 Kafka 但配置了 Elasticsearch 时使用，发布即同步写索引。
type InlinePublisher struct {
	Processor *Processor
}

// PublishMessageIndex 实现 kafka.Publisher。写索引失败只记录日志。
func (p InlinePublisher) PublishMessageIndex(ctx context.Context, task tasks.MessageIndexTask) error {
	if err := p.Processor.Process(ctx, task); err != nil {
		log.Warnf("[Indexer] 同步写索引失败: %v", err)
	}
	return nil
}

// Close 实现 kafka.Publisher。
func (InlinePublisher) Close() error { return nil }
