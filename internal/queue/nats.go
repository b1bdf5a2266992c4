package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/metrics"
)

// JetStream 基于 NATS JetStream 工作队列的实现，AckWait 到期未确认的投递会被重新投递
type JetStream struct {
	js       jetstream.JetStream
	consumer jetstream.Consumer
	subject  string
	maxWait  time.Duration
	logger   *zap.Logger
}

// JetStreamConfig 队列参数
type JetStreamConfig struct {
	Stream  string
	Durable string
	MaxWait time.Duration
	AckWait time.Duration
}

// NewJetStream 创建（或更新）流与持久消费者
func NewJetStream(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig, logger *zap.Logger) (*JetStream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	subject := cfg.Stream + ".queue"

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "run processor queue",
		Subjects:    []string{subject},
		Retention:   jetstream.WorkQueuePolicy,
	}); err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: subject,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}

	return &JetStream{
		js:       js,
		consumer: consumer,
		subject:  subject,
		maxWait:  maxWait,
		logger:   logger,
	}, nil
}

// Enqueue 发布运行 ID
func (q *JetStream) Enqueue(ctx context.Context, runID string) error {
	_, err := q.js.Publish(ctx, q.subject, EncodeRunID(runID))
	return err
}

// Fetch 拉取一批投递
func (q *JetStream) Fetch(ctx context.Context, n int) ([]*Delivery, error) {
	batch, err := q.consumer.Fetch(n, jetstream.FetchMaxWait(q.maxWait))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	var out []*Delivery
	for msg := range batch.Messages() {
		msg := msg
		id := ""
		if meta, err := msg.Metadata(); err == nil {
			id = fmt.Sprintf("%d", meta.Sequence.Stream)
		}
		out = append(out, NewDelivery(id, msg.Data(), func(ctx context.Context) error {
			return msg.Ack()
		}))
	}
	if err := batch.Error(); err != nil {
		q.logger.Debug("fetch batch ended", zap.Error(err))
	}
	metrics.QueueDeliveries.WithLabelValues("nats").Add(float64(len(out)))
	return out, nil
}
