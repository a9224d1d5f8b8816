package repository

import (
	"errors"

	"gorm.io/gorm"

	"regenai-go/internal/model"
)

// MessageRepository 定义了对话消息的持久化操作。消息只追加，不修改。
type MessageRepository interface {
	Create(msg *model.Message) error
	ListByConversation(conversationID uint) ([]model.Message, error)
	LastByConversation(conversationID uint) (*model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(msg *model.Message) error {
	return r.db.Create(msg).Error
}

// ListByConversation 按时间正序返回对话内的全部消息。
func (r *messageRepository) ListByConversation(conversationID uint) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.Where("conversation_id = ?", conversationID).Order("created_at ASC, id ASC").Find(&msgs).Error
	return msgs, err
}

// LastByConversation 返回最后一条消息；对话为空时返回 nil, nil。
func (r *messageRepository) LastByConversation(conversationID uint) (*model.Message, error) {
	var msg model.Message
	err := r.db.Where("conversation_id = ?", conversationID).Order("created_at DESC, id DESC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
