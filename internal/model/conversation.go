package model

import "time"

// 消息发送方。
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// 对话记忆中的角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation 对应 conversations 表，是属于某个用户的一条对话线程。
type Conversation struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	Title            string    `gorm:"type:varchar(255);not null" json:"title"`
	ConversationType string    `gorm:"type:varchar(50);not null;default:general" json:"conversation_type"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Conversation) TableName() string {
	return "conversations"
}

// Message 对应 messages 表，对话内按创建时间追加。
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	Sender         string    `gorm:"type:varchar(10);not null" json:"sender"` // user 或 agent
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Message) TableName() string {
	return "messages"
}

// ConversationSummary 是对话列表中的一项，附带最后一条消息预览。
type ConversationSummary struct {
	Conversation
	LastMessage *string `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}

// ConversationWithMessages 是对话详情，包含按时间排序的全部消息。
type ConversationWithMessages struct {
	Conversation
	Messages []Message `json:"messages"`
}

// ChatTurn 代表线程记忆中的单条消息，保存在 Redis 或进程内存中。
type ChatTurn struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
