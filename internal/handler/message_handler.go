package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/model"
)

// MessageHandler 消息处理器
type MessageHandler struct {
	threads  ThreadStore
	messages MessageStore
	index    SemanticIndex
	logger   *zap.Logger
}

// NewMessageHandler 创建消息处理器，index 可为 nil
func NewMessageHandler(threads ThreadStore, messages MessageStore, index SemanticIndex, logger *zap.Logger) *MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageHandler{threads: threads, messages: messages, index: index, logger: logger}
}

// CreateMessageRequest 创建消息请求
type CreateMessageRequest struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	FileIDs  []string       `json:"file_ids"`
	Metadata map[string]any `json:"metadata"`
}

// MessageResponse 消息
type MessageResponse struct {
	ID          string         `json:"id"`
	Object      string         `json:"object"`
	CreatedAt   int64          `json:"created_at"`
	ThreadID    string         `json:"thread_id"`
	Role        string         `json:"role"`
	Content     string         `json:"content"`
	AssistantID *string        `json:"assistant_id"`
	RunID       *string        `json:"run_id"`
	FileIDs     []string       `json:"file_ids"`
	Metadata    map[string]any `json:"metadata"`
}

func toMessageResponse(m *model.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:        m.ID,
		Object:    "thread.message",
		CreatedAt: epoch(m.CreatedAt),
		ThreadID:  m.ThreadID,
		Role:      m.Role,
		Content:   m.Content,
		FileIDs:   orEmptySlice(m.FileIDs),
		Metadata:  orEmpty(m.Metadata),
	}
	if m.AssistantID != "" {
		resp.AssistantID = &m.AssistantID
	}
	if m.RunID != "" {
		resp.RunID = &m.RunID
	}
	return resp
}

// CreateMessage 在线程中追加消息，并写入语义索引
// POST /v1/threads/:thread_id/messages
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !model.ValidRole(req.Role) {
		BadRequest(c, "invalid role: "+req.Role)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		BadRequest(c, "content is required")
		return
	}
	if len(req.FileIDs) > model.MaxRunFileIDs {
		BadRequest(c, "too many file_ids")
		return
	}

	ctx := c.Request.Context()
	thread, err := h.threads.GetByID(ctx, c.Param("thread_id"))
	if err != nil {
		Error(c, err)
		return
	}

	msg := &model.Message{
		ID:       model.NewID(model.MessageIDPrefix),
		ThreadID: thread.ID,
		Role:     req.Role,
		Content:  req.Content,
		FileIDs:  req.FileIDs,
		Metadata: orEmpty(req.Metadata),
	}
	if err := h.messages.Create(ctx, msg); err != nil {
		Error(c, err)
		return
	}
	indexMessage(ctx, h.index, h.logger, msg)
	Created(c, toMessageResponse(msg))
}

// GetMessage 获取消息
// GET /v1/threads/:thread_id/messages/:message_id
func (h *MessageHandler) GetMessage(c *gin.Context) {
	msg, err := h.messages.GetByID(c.Request.Context(), c.Param("thread_id"), c.Param("message_id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toMessageResponse(msg))
}

// ListMessages 列出线程消息，默认从新到旧
// GET /v1/threads/:thread_id/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	thread, err := h.threads.GetByID(ctx, c.Param("thread_id"))
	if err != nil {
		Error(c, err)
		return
	}
	messages, err := h.messages.List(ctx, thread.ID, listOptions(c))
	if err != nil {
		Error(c, err)
		return
	}
	data := make([]*MessageResponse, len(messages))
	ids := make([]string, len(messages))
	for i, m := range messages {
		data[i] = toMessageResponse(m)
		ids[i] = m.ID
	}
	Success(c, listOf(data, ids))
}

// ModifyMessageRequest 修改消息请求，只允许修改元数据
type ModifyMessageRequest struct {
	Metadata map[string]any `json:"metadata"`
}

// ModifyMessage 修改消息元数据
// POST /v1/threads/:thread_id/messages/:message_id
func (h *MessageHandler) ModifyMessage(c *gin.Context) {
	var req ModifyMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	threadID, messageID := c.Param("thread_id"), c.Param("message_id")
	if err := h.messages.UpdateMetadata(ctx, threadID, messageID, orEmpty(req.Metadata)); err != nil {
		Error(c, err)
		return
	}
	msg, err := h.messages.GetByID(ctx, threadID, messageID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toMessageResponse(msg))
}

// SearchRequest 语义检索请求
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// SearchResult 一条检索命中
type SearchResult struct {
	MessageID string `json:"message_id"`
	Rank      int    `json:"rank"`
}

// SearchMessages 按语义相似度检索消息 ID
// POST /v1/messages/search
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	if h.index == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: ErrorBody{
			Message: "semantic index is not configured",
			Type:    errTypeServer,
		}})
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 10
	}

	ids, err := h.index.Query(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		Error(c, err)
		return
	}
	data := make([]SearchResult, len(ids))
	for i, id := range ids {
		data[i] = SearchResult{MessageID: id, Rank: i + 1}
	}
	Success(c, listOf(data, ids))
}

// indexMessage 写入语义索引，失败只记录日志
func indexMessage(ctx context.Context, index SemanticIndex, logger *zap.Logger, msg *model.Message) {
	if index == nil || strings.TrimSpace(msg.Content) == "" {
		return
	}
	if err := index.Index(ctx, msg.ID, msg.Content); err != nil {
		logger.Warn("failed to index message", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
