// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"regenai-go/pkg/log"
)

// MessageDocument 是写入索引的一条对话消息。
type MessageDocument struct {
	MessageID      uint      `json:"message_id"`
	ConversationID uint      `json:"conversation_id"`
	UserID         uint      `json:"user_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageHit 是一条检索结果。
type MessageHit struct {
	MessageDocument
	Score     float64  `json:"score"`
	Highlight []string `json:"highlight,omitempty"`
}

// Options 描述 Elasticsearch 连接参数。
type Options struct {
	Addresses string
	Username  string
	Password  string
	IndexName string
}

// Client 封装了消息索引的读写。
type Client struct {
	es    *elasticsearch.Client
	index string
}

// NewClient 初始化 Elasticsearch 客户端，并确保索引存在。
func NewClient(opts Options) (*Client, error) {
	var addrs []string
	for _, a := range strings.Split(opts.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addrs,
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	c := &Client{es: client, index: opts.IndexName}
	if err := c.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return c, nil
}

const messageMapping = `{
	"mappings": {
		"properties": {
			"message_id": { "type": "long" },
			"conversation_id": { "type": "long" },
			"user_id": { "type": "long" },
			"sender": { "type": "keyword" },
			"content": { "type": "text", "analyzer": "standard" },
			"created_at": { "type": "date" }
		}
	}
}`

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (c *Client) createIndexIfNotExists() error {
	res, err := c.es.Indices.Exists([]string{c.index})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	// 200 说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", c.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = c.es.Indices.Create(c.index, c.es.Indices.Create.WithBody(strings.NewReader(messageMapping)))
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", c.index, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", c.index, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", c.index)
	return nil
}

// IndexMessage 写入或覆盖一条消息，文档 ID 为消息 ID。
func (c *Client) IndexMessage(ctx context.Context, doc MessageDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatUint(uint64(doc.MessageID), 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引消息到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index message")
	}
	return nil
}

// DeleteConversation 删除某个对话下的全部消息文档。
func (c *Client) DeleteConversation(ctx context.Context, conversationID uint) error {
	body := map[string]any{
		"query": map[string]any{"term": map[string]any{"conversation_id": conversationID}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	res, err := c.es.DeleteByQuery([]string{c.index}, &buf, c.es.DeleteByQuery.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by query failed: %s", res.String())
	}
	return nil
}

// BuildSearchQuery 构造按用户过滤的全文检索请求体。
func BuildSearchQuery(userID uint, query string, size int) map[string]any {
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"content": map[string]any{"query": query, "operator": "or"}}},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userID}},
				},
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{"content": map[string]any{}},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    MessageDocument     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchMessages 在某个用户的消息中做全文检索。
func (c *Client) SearchMessages(ctx context.Context, userID uint, query string, size int) ([]MessageHit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildSearchQuery(userID, query, size)); err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]MessageHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, MessageHit{
			MessageDocument: h.Source,
			Score:           h.Score,
			Highlight:       h.Highlight["content"],
		})
	}
	return hits, nil
}
