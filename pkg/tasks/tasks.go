// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import (
	"fmt"
	"time"
)

// MessageIndexTask 表示一条需要写入全文检索索引的对话消息。
type MessageIndexTask struct {
	MessageID      uint      `json:"message_id"`
	ConversationID uint      `json:"conversation_id"`
	UserID         uint      `json:"user_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Key 是任务的唯一标识，用作 Kafka 消息 key 与重试计数 key。
func (t MessageIndexTask) Key() string {
	return fmt.Sprintf("message:%d", t.MessageID)
}
