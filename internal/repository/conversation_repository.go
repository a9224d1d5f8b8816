package repository

import (
	"time"

	"gorm.io/gorm"

	"regenai-go/internal/model"
)

// ConversationRepository 定义了对话的持久化操作。
type ConversationRepository interface {
	Create(conv *model.Conversation) error
	FindByIDForUser(id, userID uint) (*model.Conversation, error)
	ListByUser(userID uint) ([]model.Conversation, error)
	UpdateTitle(conv *model.Conversation, title string) error
	Delete(id, userID uint) error
	Touch(id uint) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(conv *model.Conversation) error {
	if conv.ConversationType == "" {
		conv.ConversationType = "general"
	}
	return r.db.Create(conv).Error
}

// FindByIDForUser 查询不存在或不属于该用户时返回 gorm.ErrRecordNotFound。
func (r *conversationRepository) FindByIDForUser(id, userID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByUser 按最近活跃时间倒序返回。
func (r *conversationRepository) ListByUser(userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC, id DESC").Find(&convs).Error
	return convs, err
}

func (r *conversationRepository) UpdateTitle(conv *model.Conversation, title string) error {
	return r.db.Model(conv).Update("title", title).Error
}

// Delete 在一个事务内删除对话及其全部消息。
func (r *conversationRepository) Delete(id, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conv).Error
	})
}

// Touch 更新对话的 updated_at，用于列表排序。
func (r *conversationRepository) Touch(id uint) error {
	return r.db.Model(&model.Conversation{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
}
