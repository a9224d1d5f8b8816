package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"regenai-go/internal/model"
	"regenai-go/internal/repository"
	"regenai-go/pkg/log"
)

// DefaultConversationTitle 是未提供标题时使用的标题。
const DefaultConversationTitle = "New Conversation"

// ExportURLExpiry 是导出文件下载链接的有效期。
const ExportURLExpiry = time.Hour

// ObjectStore 保存导出文件并生成临时下载地址。
type ObjectStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ConversationIndexCleaner 在对话删除后清理检索索引。
type ConversationIndexCleaner interface {
	DeleteConversation(ctx context.Context, conversationID uint) error
}

// ConversationService 定义了对话业务逻辑的接口。
type ConversationService interface {
	Create(userID uint, title, conversationType string) (*model.Conversation, error)
	List(userID uint) ([]model.ConversationSummary, error)
	Get(userID, conversationID uint) (*model.ConversationWithMessages, error)
	UpdateTitle(userID, conversationID uint, title string) (*model.Conversation, error)
	Delete(ctx context.Context, userID, conversationID uint) error
	Export(ctx context.Context, userID, conversationID uint) (string, error)
}

type conversationService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	store    ObjectStore
	cleaner  ConversationIndexCleaner
	now      func() time.Time
}

// NewConversationService 创建一个新的 ConversationService。store 与 cleaner 可以为 nil。
func NewConversationService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, store ObjectStore, cleaner ConversationIndexCleaner) ConversationService {
	return &conversationService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		store:    store,
		cleaner:  cleaner,
		now:      time.Now,
	}
}

func (s *conversationService) Create(userID uint, title, conversationType string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}
	conv := &model.Conversation{UserID: userID, Title: title, ConversationType: strings.TrimSpace(conversationType)}
	if err := s.convRepo.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// List 返回用户的全部对话，附带最后一条消息的预览。
func (s *conversationService) List(userID uint) ([]model.ConversationSummary, error) {
	convs, err := s.convRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := model.ConversationSummary{Conversation: c}
		last, err := s.msgRepo.LastByConversation(c.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			content := last.Content
			summary.LastMessage = &content
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *conversationService) owned(userID, conversationID uint) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByIDForUser(conversationID, userID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return conv, nil
}

func (s *conversationService) Get(userID, conversationID uint) (*model.ConversationWithMessages, error) {
	conv, err := s.owned(userID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListByConversation(conv.ID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return &model.ConversationWithMessages{Conversation: *conv, Messages: msgs}, nil
}

func (s *conversationService) UpdateTitle(userID, conversationID uint, title string) (*model.Conversation, error) {
	conv, err := s.owned(userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.convRepo.UpdateTitle(conv, strings.TrimSpace(title)); err != nil {
		return nil, err
	}
	return s.owned(userID, conversationID)
}

// Delete 删除对话及其消息，并尽力清理检索索引。
func (s *conversationService) Delete(ctx context.Context, userID, conversationID uint) error {
	if err := s.convRepo.Delete(conversationID, userID); err != nil {
		return translateNotFound(err)
	}
	if s.cleaner != nil {
		if err := s.cleaner.DeleteConversation(ctx, conversationID); err != nil {
			log.Warnf("[ConversationService] 清理对话索引失败, conversationID: %d, error: %v", conversationID, err)
		}
	}
	return nil
}

// Export 把对话导出为 Markdown 写入对象存储，返回临时下载地址。
func (s *conversationService) Export(ctx context.Context, userID, conversationID uint) (string, error) {
	if s.store == nil {
		return "", ErrFeatureDisabled
	}
	conv, err := s.Get(userID, conversationID)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	objectName := fmt.Sprintf("exports/user_%d/conversation_%d_%s.md", userID, conv.ID, now.Format("20060102T150405Z"))
	if err := s.store.Put(ctx, objectName, RenderTranscript(conv, now), "text/markdown; charset=utf-8"); err != nil {
		return "", err
	}
	url, err := s.store.PresignedURL(ctx, objectName, ExportURLExpiry)
	if err != nil {
		return "", err
	}
	log.Infof("[ConversationService] 对话已导出, conversationID: %d, object: %s", conv.ID, objectName)
	return url, nil
}

// RenderTranscript 生成对话的 Markdown 文本。
func RenderTranscript(conv *model.ConversationWithMessages, exportedAt time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "- Type: %s\n", conv.ConversationType)
	fmt.Fprintf(&b, "- Created: %s (UTC)\n", model.LocalTime(conv.CreatedAt))
	fmt.Fprintf(&b, "- Exported: %s (UTC)\n\n", model.LocalTime(exportedAt))
	for _, m := range conv.Messages {
		speaker := "Farmer"
		if m.Sender == model.SenderAgent {
			speaker = "Advisor"
		}
		fmt.Fprintf(&b, "**%s** (%s)\n\n%s\n\n", speaker, model.LocalTime(m.CreatedAt), m.Content)
	}
	return []byte(b.String())
}
