package vectorindex

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const ledgerKey = "vectorindex:chunks"

// RedisLedger 用 Redis hash 记录每个来源的分块数
type RedisLedger struct {
	client redis.Cmdable
	key    string
}

// NewRedisLedger 创建分块账本，prefix 用于区分不同索引
func NewRedisLedger(client redis.Cmdable, prefix string) *RedisLedger {
	key := ledgerKey
	if prefix != "" {
		key = prefix + ":" + ledgerKey
	}
	return &RedisLedger{client: client, key: key}
}

// Get 未记录的来源返回 0
func (l *RedisLedger) Get(ctx context.Context, sourceID string) (int, error) {
	v, err := l.client.HGet(ctx, l.key, sourceID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// Set 记录分块数
func (l *RedisLedger) Set(ctx context.Context, sourceID string, chunks int) error {
	return l.client.HSet(ctx, l.key, sourceID, chunks).Err()
}

// Delete 删除记录
func (l *RedisLedger) Delete(ctx context.Context, sourceIDs ...string) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	return l.client.HDel(ctx, l.key, sourceIDs...).Err()
}
