package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/metrics"
)

const bodyField = "body"

// RedisStream 基于 Redis Streams 消费组的队列。
// 超过 minIdle 未确认的投递会被其他消费者通过 XAUTOCLAIM 认领并重新处理。
type RedisStream struct {
	client   redis.UniversalClient
	stream   string
	group    string
	consumer string
	block    time.Duration
	minIdle  time.Duration
	logger   *zap.Logger
}

// RedisStreamConfig 队列参数
type RedisStreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
	MinIdle  time.Duration
}

// NewRedisStream 创建队列
func NewRedisStream(client redis.UniversalClient, cfg RedisStreamConfig, logger *zap.Logger) *RedisStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStream{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		block:    cfg.Block,
		minIdle:  cfg.MinIdle,
		logger:   logger,
	}
}

// WithConsumer 同一消费组下另一个消费者
func (q *RedisStream) WithConsumer(name string) *RedisStream {
	cp := *q
	cp.consumer = name
	return &cp
}

// EnsureGroup 创建消费组（流不存在时一并创建）
func (q *RedisStream) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Enqueue 发布运行 ID
func (q *RedisStream) Enqueue(ctx context.Context, runID string) error {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{bodyField: EncodeRunID(runID)},
	}).Err()
}

// Fetch 先认领超时未确认的投递，没有时再阻塞读取新投递
func (q *RedisStream) Fetch(ctx context.Context, n int) ([]*Delivery, error) {
	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.minIdle,
		Start:    "0-0",
		Count:    int64(n),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("claim pending: %w", err)
	}
	if len(claimed) > 0 {
		q.logger.Info("reclaimed pending deliveries", zap.Int("count", len(claimed)))
		return q.deliveries(claimed), nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(n),
		Block:    q.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read group: %w", err)
	}

	var out []*Delivery
	for _, s := range streams {
		out = append(out, q.deliveries(s.Messages)...)
	}
	return out, nil
}

func (q *RedisStream) deliveries(msgs []redis.XMessage) []*Delivery {
	out := make([]*Delivery, 0, len(msgs))
	for _, m := range msgs {
		id := m.ID
		var body []byte
		switch v := m.Values[bodyField].(type) {
		case string:
			body = []byte(v)
		case []byte:
			body = v
		}
		out = append(out, NewDelivery(id, body, func(ctx context.Context) error {
			return q.client.XAck(ctx, q.stream, q.group, id).Err()
		}))
	}
	metrics.QueueDeliveries.WithLabelValues("redis").Add(float64(len(out)))
	return out
}
