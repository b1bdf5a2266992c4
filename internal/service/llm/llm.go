// Package llm 封装生成模型的流式调用，统一输出为分片流
package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Request 一次流式生成请求
type Request struct {
	Model    string
	Messages []*schema.Message
}

// Invoker 发起流式生成。返回的每个元素是一条分片（见 stream.Frame），
// 调用方负责 Close。
type Invoker interface {
	Stream(ctx context.Context, req *Request) (*schema.StreamReader[string], error)
}
