// Package stream 把模型的流式输出聚合为完整文本
package stream

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/metrics"
)

const (
	dataPrefix = "data:"
	// Done 流结束标记
	Done = "[DONE]"
)

// Source 拉取式的分片来源，*schema.StreamReader[string] 满足该接口
type Source interface {
	Recv() (string, error)
	Close()
}

type fragment struct {
	Response *string `json:"response"`
}

// Frame 把一段文本编码为一条分片
func Frame(text string) string {
	b, _ := json.Marshal(map[string]string{"response": text})
	return dataPrefix + " " + string(b)
}

// DoneFrame 结束分片
func DoneFrame() string {
	return dataPrefix + " " + Done
}

// Aggregator 流式输出聚合器
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator 创建聚合器
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger}
}

// Aggregate 读取 src 直到结束标记或 io.EOF，返回拼接后的文本。
// src 返回其他错误时，连同已聚合的文本一起返回。
func (a *Aggregator) Aggregate(src Source) (string, error) {
	var sb strings.Builder
	err := a.Each(src, func(delta string) error {
		sb.WriteString(delta)
		return nil
	})
	return sb.String(), err
}

// Each 按顺序把每段有效文本交给 fn，直到结束标记、io.EOF 或 fn 返回错误。
// 无法解析的分片记录日志后跳过；与上一段完全相同的文本会被丢弃。
func (a *Aggregator) Each(src Source, fn func(delta string) error) error {
	defer src.Close()

	var (
		last string
		seen bool
	)
	for {
		raw, err := src.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		payload := strings.TrimSpace(raw)
		// SSE 注释行
		if strings.HasPrefix(payload, ":") {
			continue
		}
		if strings.HasPrefix(payload, dataPrefix) {
			payload = strings.TrimSpace(payload[len(dataPrefix):])
		}
		if payload == "" {
			continue
		}
		if payload == Done {
			return nil
		}

		var f fragment
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			a.logger.Warn("skip unparsable fragment", zap.String("fragment", payload), zap.Error(err))
			metrics.StreamFragmentsSkipped.Inc()
			continue
		}
		if f.Response == nil || *f.Response == "" {
			continue
		}
		if seen && *f.Response == last {
			continue
		}
		if err := fn(*f.Response); err != nil {
			return err
		}
		last = *f.Response
		seen = true
	}
}
