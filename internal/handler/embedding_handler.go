package handler

import (
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/ashwinyue/next-assistants/internal/service/token"
)

// EmbeddingHandler 文本向量化接口
type EmbeddingHandler struct {
	embedder embedding.Embedder
	model    string
}

// NewEmbeddingHandler 创建向量化处理器，embedder 为 nil 时接口返回 503
func NewEmbeddingHandler(embedder embedding.Embedder, model string) *EmbeddingHandler {
	return &EmbeddingHandler{embedder: embedder, model: model}
}

// CreateEmbeddings 生成向量
// POST /v1/embeddings
func (h *EmbeddingHandler) CreateEmbeddings(c *gin.Context) {
	if h.embedder == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: ErrorBody{Message: "embeddings not configured", Type: errTypeServer}})
		return
	}

	var req openai.EmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	texts, ok := embeddingInputs(req.Input)
	if !ok {
		BadRequest(c, "input must be a non-empty string or array of strings")
		return
	}

	vectors, err := h.embedder.EmbedStrings(c.Request.Context(), texts)
	if err != nil {
		Error(c, err)
		return
	}

	resp := openai.EmbeddingResponse{
		Object: "list",
		Data:   make([]openai.Embedding, 0, len(vectors)),
		Model:  openai.EmbeddingModel(h.model),
	}
	if req.Model != "" {
		resp.Model = req.Model
	}
	for i, v := range vectors {
		vec := make([]float32, len(v))
		for j, f := range v {
			vec[j] = float32(f)
		}
		resp.Data = append(resp.Data, openai.Embedding{Object: "embedding", Embedding: vec, Index: i})
	}
	for _, text := range texts {
		resp.Usage.PromptTokens += token.EstimateEmbedding(text)
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens
	Success(c, resp)
}

// embeddingInputs 接受字符串或字符串数组
func embeddingInputs(input any) ([]string, bool) {
	switch v := input.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}
		return []string{v}, true
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		texts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			texts = append(texts, s)
		}
		return texts, true
	default:
		return nil, false
	}
}
