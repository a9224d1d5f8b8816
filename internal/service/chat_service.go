package service

import (
	"context"
	"fmt"

	"regenai-go/internal/model"
	"regenai-go/internal/pipeline"
	"regenai-go/internal/repository"
	"regenai-go/pkg/kafka"
	"regenai-go/pkg/log"
	"regenai-go/pkg/tasks"
)

// ThreadKey 是对话对应的线程记忆 key。对话接口与 /agent/chat 共用同一套线程记忆。
func ThreadKey(conversationID uint) string {
	return fmt.Sprintf("conv_%d", conversationID)
}

// Replier 运行回复流水线。
type Replier interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// ChatService 定义了聊天相关的业务操作。
type ChatService interface {
	// Chat 在任意线程上对话，不落库。
	Chat(ctx context.Context, userID uint, threadID, message string) (pipeline.Result, error)
	// Send 在对话中发送一条消息，保存用户消息与回复。
	Send(ctx context.Context, userID, conversationID uint, content string) (userMsg, agentMsg *model.Message, err error)
	// 以下三个方法供流式接口分步调用。
	SaveUserMessage(ctx context.Context, userID, conversationID uint, content string) (*model.Message, error)
	GenerateReply(ctx context.Context, userID, conversationID uint, content string) string
	SaveAgentMessage(ctx context.Context, userID, conversationID uint, reply string) (*model.Message, error)
}

type chatService struct {
	replier   Replier
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	publisher kafka.Publisher
}

// NewChatService 创建一个新的 ChatService 实例。publisher 为 nil 时不发布索引任务。
func NewChatService(replier Replier, convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, publisher kafka.Publisher) ChatService {
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	return &chatService{
		replier:   replier,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		publisher: publisher,
	}
}

func (s *chatService) Chat(ctx context.Context, userID uint, threadID, message string) (pipeline.Result, error) {
	log.Infof("[ChatService] 收到对话请求, userID: %d, thread: %s", userID, threadID)
	return s.replier.Run(context.WithoutCancel(ctx), pipeline.Request{UserID: userID, ThreadID: threadID, Message: message})
}

func (s *chatService) Send(ctx context.Context, userID, conversationID uint, content string) (*model.Message, *model.Message, error) {
	userMsg, err := s.SaveUserMessage(ctx, userID, conversationID, content)
	if err != nil {
		return nil, nil, err
	}
	reply := s.GenerateReply(ctx, userID, conversationID, content)
	agentMsg, err := s.SaveAgentMessage(ctx, userID, conversationID, reply)
	if err != nil {
		return nil, nil, err
	}
	return userMsg, agentMsg, nil
}

func (s *chatService) SaveUserMessage(ctx context.Context, userID, conversationID uint, content string) (*model.Message, error) {
	if _, err := s.ownedConversation(userID, conversationID); err != nil {
		return nil, err
	}
	return s.append(ctx, userID, conversationID, model.SenderUser, content)
}

// GenerateReply 运行流水线。流水线内部的失败已降级为致歉文本，这里不会失败。
// 客户端断开不会中断模型调用，回复与线程记忆始终完整。
func (s *chatService) GenerateReply(ctx context.Context, userID, conversationID uint, content string) string {
	res, err := s.replier.Run(context.WithoutCancel(ctx), pipeline.Request{
		UserID:   userID,
		ThreadID: ThreadKey(conversationID),
		Message:  content,
	})
	if err != nil {
		log.Warnf("[ChatService] 生成回复失败, conversationID: %d, error: %v", conversationID, err)
		return pipeline.EmptyReply
	}
	return res.Reply
}

func (s *chatService) SaveAgentMessage(ctx context.Context, userID, conversationID uint, reply string) (*model.Message, error) {
	return s.append(ctx, userID, conversationID, model.SenderAgent, reply)
}

func (s *chatService) ownedConversation(userID, conversationID uint) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByIDForUser(conversationID, userID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return conv, nil
}

// append 保存消息、刷新对话活跃时间，并发布索引任务。
func (s *chatService) append(ctx context.Context, userID, conversationID uint, sender, content string) (*model.Message, error) {
	msg := &model.Message{ConversationID: conversationID, Sender: sender, Content: content}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, fmt.Errorf("保存消息失败: %w", err)
	}
	if err := s.convRepo.Touch(conversationID); err != nil {
		log.Warnf("[ChatService] 更新对话时间失败, conversationID: %d, error: %v", conversationID, err)
	}

	task := tasks.MessageIndexTask{
		MessageID:      msg.ID,
		ConversationID: conversationID,
		UserID:         userID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      msg.CreatedAt,
	}
	if err := s.publisher.PublishMessageIndex(context.WithoutCancel(ctx), task); err != nil {
		log.Warnf("[ChatService] 发布消息索引任务失败, messageID: %d, error: %v", msg.ID, err)
	}
	return msg, nil
}
