package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"regenai-go/pkg/log"
)

// NewRedis 创建 Redis 客户端并测试连接。addr 为空时返回 nil，调用方退回到进程内实现。
func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
