package llm

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/ollama/ollama/api"

	"github.com/ashwinyue/next-assistants/internal/service/stream"
)

// OllamaInvoker 本地 Ollama 模型
type OllamaInvoker struct {
	client *api.Client
	model  string
}

// NewOllamaInvoker 创建 Ollama 调用器
func NewOllamaInvoker(baseURL, model string, timeout time.Duration) (*OllamaInvoker, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &OllamaInvoker{
		client: api.NewClient(u, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

// Stream Ollama 的回调式输出通过管道转为拉取式
func (o *OllamaInvoker) Stream(ctx context.Context, req *Request) (*schema.StreamReader[string], error) {
	modelName := o.model
	if req.Model != "" {
		modelName = req.Model
	}

	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	streaming := true
	chatReq := &api.ChatRequest{
		Model:    modelName,
		Messages: messages,
		Stream:   &streaming,
	}

	sr, sw := schema.Pipe[string](16)
	go func() {
		defer sw.Close()
		err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				if closed := sw.Send(stream.Frame(resp.Message.Content), nil); closed {
					return context.Canceled
				}
			}
			if resp.Done {
				sw.Send(stream.DoneFrame(), nil)
			}
			return nil
		})
		if err != nil {
			sw.Send("", err)
		}
	}()

	return sr, nil
}
