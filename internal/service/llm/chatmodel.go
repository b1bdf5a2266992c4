package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-assistants/internal/service/stream"
)

// ChatModelInvoker 基于 eino ChatModel 的调用
type ChatModelInvoker struct {
	chatModel model.BaseChatModel
}

// NewChatModelInvoker 创建调用器
func NewChatModelInvoker(chatModel model.BaseChatModel) *ChatModelInvoker {
	return &ChatModelInvoker{chatModel: chatModel}
}

// Stream 把消息增量转换为分片
func (i *ChatModelInvoker) Stream(ctx context.Context, req *Request) (*schema.StreamReader[string], error) {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}

	sr, err := i.chatModel.Stream(ctx, req.Messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("chat model stream: %w", err)
	}

	return schema.StreamReaderWithConvert(sr, func(msg *schema.Message) (string, error) {
		if msg == nil || msg.Content == "" {
			return "", schema.ErrNoValue
		}
		return stream.Frame(msg.Content), nil
	}), nil
}
