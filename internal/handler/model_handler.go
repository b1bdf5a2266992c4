package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistants/internal/service/limits"
)

// ModelHandler 模型处理器
type ModelHandler struct {
	limits  *limits.Table
	ownedBy string
}

// NewModelHandler 创建模型处理器
func NewModelHandler(table *limits.Table, ownedBy string) *ModelHandler {
	return &ModelHandler{limits: table, ownedBy: ownedBy}
}

// ModelResponse 模型及其 token 限额
type ModelResponse struct {
	ID           string `json:"id"`
	Object       string `json:"object"`
	OwnedBy      string `json:"owned_by"`
	Tokens       int    `json:"max_tokens"`
	StreamTokens int    `json:"stream_tokens"`
	Context      int    `json:"context_window"`
}

// ListModels 列出已配置限额的模型
// GET /v1/models
func (h *ModelHandler) ListModels(c *gin.Context) {
	entries := h.limits.Entries()
	data := make([]ModelResponse, len(entries))
	for i, e := range entries {
		data[i] = ModelResponse{
			ID:           e.ID,
			Object:       "model",
			OwnedBy:      h.ownedBy,
			Tokens:       e.Tokens,
			StreamTokens: e.StreamTokens,
			Context:      e.Context,
		}
	}
	Success(c, ListResponse{Object: "list", Data: data})
}
