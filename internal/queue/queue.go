// Package queue 投递待处理的运行 ID，至少一次语义
package queue

import (
	"context"
	"errors"
)

// ErrClosed 队列已关闭
var ErrClosed = errors.New("queue closed")

// Delivery 一条投递，处理完成后必须 Ack
type Delivery struct {
	ID   string
	Body []byte
	ack  func(ctx context.Context) error
}

// NewDelivery 构造投递
func NewDelivery(id string, body []byte, ack func(ctx context.Context) error) *Delivery {
	return &Delivery{ID: id, Body: body, ack: ack}
}

// Ack 确认投递，之后不会再被重新投递
func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Consumer 批量拉取投递
type Consumer interface {
	// Fetch 最多返回 n 条投递；等待超时返回空批次
	Fetch(ctx context.Context, n int) ([]*Delivery, error)
}

// Producer 发布运行 ID
type Producer interface {
	Enqueue(ctx context.Context, runID string) error
}
