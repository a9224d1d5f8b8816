package service

import (
	"context"
	"strings"

	"regenai-go/pkg/es"
	"regenai-go/pkg/log"
)

// 检索结果条数的默认值与上限。
const (
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

// MessageSearcher 在消息索引中检索。
type MessageSearcher interface {
	SearchMessages(ctx context.Context, userID uint, query string, size int) ([]es.MessageHit, error)
}

// SearchService 接口定义了历史消息检索操作。
type SearchService interface {
	SearchMessages(ctx context.Context, userID uint, query string, size int) ([]es.MessageHit, error)
}

type searchService struct {
	searcher MessageSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。searcher 为 nil 时检索不可用。
func NewSearchService(searcher MessageSearcher) SearchService {
	return &searchService{searcher: searcher}
}

// SearchMessages 只在当前用户自己的消息中检索。
func (s *searchService) SearchMessages(ctx context.Context, userID uint, query string, size int) ([]es.MessageHit, error) {
	if s.searcher == nil {
		return nil, ErrFeatureDisabled
	}
	query = strings.TrimSpace(query)
	if size <= 0 {
		size = DefaultSearchSize
	}
	if size > MaxSearchSize {
		size = MaxSearchSize
	}
	log.Infof("[SearchService] 检索历史消息, userID: %d, query: '%s', size: %d", userID, query, size)
	hits, err := s.searcher.SearchMessages(ctx, userID, query, size)
	if err != nil {
		log.Errorf("[SearchService] 检索失败: %v", err)
		return nil, err
	}
	if hits == nil {
		hits = []es.MessageHit{}
	}
	return hits, nil
}
