package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/model"
	"github.com/ashwinyue/next-assistants/internal/service/llm"
	"github.com/ashwinyue/next-assistants/internal/service/stream"
	"github.com/ashwinyue/next-assistants/internal/service/token"
)

// ChatHandler 无状态的对话与补全接口，直接调用生成模型
type ChatHandler struct {
	invoker      llm.Invoker
	aggregator   *stream.Aggregator
	defaultModel string
	logger       *zap.Logger
}

// NewChatHandler 创建对话处理器，请求未指定模型时使用 defaultModel
func NewChatHandler(invoker llm.Invoker, defaultModel string, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		invoker:      invoker,
		aggregator:   stream.NewAggregator(logger.Named("stream")),
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// ChatCompletions 对话补全，stream=true 时以 SSE 逐段返回
// POST /v1/chat/completions
func (h *ChatHandler) ChatCompletions(c *gin.Context) {
	var req openai.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		BadRequest(c, "no messages provided")
		return
	}

	messages := make([]*schema.Message, 0, len(req.Messages))
	promptTokens := 0
	for _, m := range req.Messages {
		if !model.ValidRole(m.Role) {
			BadRequest(c, "invalid role: "+m.Role)
			return
		}
		messages = append(messages, &schema.Message{Role: schema.RoleType(m.Role), Content: m.Content})
		promptTokens += token.Estimate(m.Content)
	}

	modelName := h.modelOf(req.Model)
	sr, err := h.invoker.Stream(c.Request.Context(), &llm.Request{Model: req.Model, Messages: messages})
	if err != nil {
		Error(c, err)
		return
	}

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	if req.Stream {
		h.streamChat(c, sr, id, created, modelName)
		return
	}

	text, err := h.aggregator.Aggregate(sr)
	if err != nil {
		Error(c, err)
		return
	}
	completionTokens := token.Estimate(text)
	Success(c, openai.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   modelName,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

func (h *ChatHandler) streamChat(c *gin.Context, sr *schema.StreamReader[string], id string, created int64, modelName string) {
	// 设置 SSE 响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	chunk := func(delta openai.ChatCompletionStreamChoiceDelta, finish openai.FinishReason) openai.ChatCompletionStreamResponse {
		return openai.ChatCompletionStreamResponse{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   modelName,
			Choices: []openai.ChatCompletionStreamChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		}
	}

	ctx := c.Request.Context()
	c.SSEvent("", chunk(openai.ChatCompletionStreamChoiceDelta{Role: openai.ChatMessageRoleAssistant}, ""))
	c.Writer.Flush()

	err := h.aggregator.Each(sr, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SSEvent("", chunk(openai.ChatCompletionStreamChoiceDelta{Content: delta}, ""))
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		// 响应头已发出，只能记录后结束
		h.logger.Warn("chat stream aborted", zap.String("id", id), zap.Error(err))
		return
	}

	c.SSEvent("", chunk(openai.ChatCompletionStreamChoiceDelta{}, openai.FinishReasonStop))
	c.SSEvent("", stream.Done)
	c.Writer.Flush()
}

// Completions 旧式文本补全，prompt 作为一条用户消息
// POST /v1/completions
func (h *ChatHandler) Completions(c *gin.Context) {
	var req struct {
		Model  string `json:"model"`
		Prompt any    `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	prompt, ok := req.Prompt.(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		BadRequest(c, "no prompt provided")
		return
	}

	sr, err := h.invoker.Stream(c.Request.Context(), &llm.Request{
		Model:    req.Model,
		Messages: []*schema.Message{schema.UserMessage(prompt)},
	})
	if err != nil {
		Error(c, err)
		return
	}
	text, err := h.aggregator.Aggregate(sr)
	if err != nil {
		Error(c, err)
		return
	}

	promptTokens, completionTokens := token.Estimate(prompt), token.Estimate(text)
	c.JSON(http.StatusOK, openai.CompletionResponse{
		ID:      fmt.Sprintf("cmpl-%s", uuid.NewString()),
		Object:  "text_completion",
		Created: time.Now().Unix(),
		Model:   h.modelOf(req.Model),
		Choices: []openai.CompletionChoice{{
			Index:        0,
			Text:         text,
			FinishReason: string(openai.FinishReasonStop),
		}},
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

func (h *ChatHandler) modelOf(requested string) string {
	if requested != "" {
		return requested
	}
	return h.defaultModel
}
