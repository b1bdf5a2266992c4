package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/ashwinyue/next-assistants/internal/config"
)

// NewInvoker 按配置的 provider 创建调用器
func NewInvoker(ctx context.Context, cfg *config.AIConfig) (Invoker, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("api_key is required for provider: %s", cfg.Provider)
		}
		chatCfg := &openai.ChatModelConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.ChatModel(),
		}
		if cfg.OpenAI.Timeout > 0 {
			chatCfg.Timeout = time.Duration(cfg.OpenAI.Timeout) * time.Second
		}
		chatModel, err := openai.NewChatModel(ctx, chatCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewChatModelInvoker(chatModel), nil

	case "ollama":
		return NewOllamaInvoker(cfg.Ollama.BaseURL, cfg.Ollama.Model,
			time.Duration(cfg.Ollama.Timeout)*time.Second)

	case "workersai", "":
		w := cfg.WorkersAI
		return NewSSEInvoker(w.BaseURL, w.AccountID, w.APIToken, w.Model,
			time.Duration(w.Timeout)*time.Second), nil

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
