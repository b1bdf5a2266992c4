package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/model"
)

// ThreadHandler 线程处理器
type ThreadHandler struct {
	threads ThreadStore
	index   SemanticIndex
	logger  *zap.Logger
}

// NewThreadHandler 创建线程处理器，index 可为 nil
func NewThreadHandler(threads ThreadStore, index SemanticIndex, logger *zap.Logger) *ThreadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThreadHandler{threads: threads, index: index, logger: logger}
}

// InitialMessage 创建线程时附带的消息
type InitialMessage struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	FileIDs  []string       `json:"file_ids"`
	Metadata map[string]any `json:"metadata"`
}

// CreateThreadRequest 创建线程请求，body 可为空
type CreateThreadRequest struct {
	Messages []InitialMessage `json:"messages"`
	Metadata map[string]any   `json:"metadata"`
}

// ModifyRequest 元数据修改请求
type ModifyRequest struct {
	Metadata map[string]any `json:"metadata"`
}

// ThreadResponse 线程
type ThreadResponse struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	CreatedAt int64          `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

func toThreadResponse(t *model.Thread) *ThreadResponse {
	return &ThreadResponse{
		ID:        t.ID,
		Object:    "thread",
		CreatedAt: epoch(t.CreatedAt),
		Metadata:  orEmpty(t.Metadata),
	}
}

// CreateThread 创建线程
// POST /v1/threads
func (h *ThreadHandler) CreateThread(c *gin.Context) {
	var req CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	thread := &model.Thread{
		ID:       model.NewID(model.ThreadIDPrefix),
		Metadata: orEmpty(req.Metadata),
	}
	messages := make([]*model.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = model.RoleUser
		}
		if !model.ValidRole(role) {
			BadRequest(c, "invalid role: "+m.Role)
			return
		}
		messages = append(messages, &model.Message{
			ID:       model.NewID(model.MessageIDPrefix),
			ThreadID: thread.ID,
			Role:     role,
			Content:  m.Content,
			FileIDs:  m.FileIDs,
			Metadata: orEmpty(m.Metadata),
		})
	}

	ctx := c.Request.Context()
	if err := h.threads.Create(ctx, thread, messages...); err != nil {
		Error(c, err)
		return
	}
	for _, m := range messages {
		indexMessage(ctx, h.index, h.logger, m)
	}
	Created(c, toThreadResponse(thread))
}

// GetThread 获取线程
// GET /v1/threads/:thread_id
func (h *ThreadHandler) GetThread(c *gin.Context) {
	thread, err := h.threads.GetByID(c.Request.Context(), c.Param("thread_id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toThreadResponse(thread))
}

// ModifyThread 修改线程元数据
// POST /v1/threads/:thread_id
func (h *ThreadHandler) ModifyThread(c *gin.Context) {
	var req ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	id := c.Param("thread_id")
	if err := h.threads.UpdateMetadata(ctx, id, orEmpty(req.Metadata)); err != nil {
		Error(c, err)
		return
	}
	thread, err := h.threads.GetByID(ctx, id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toThreadResponse(thread))
}

// DeleteThread 删除线程、其消息及消息的向量条目
// DELETE /v1/threads/:thread_id
func (h *ThreadHandler) DeleteThread(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("thread_id")
	messageIDs, err := h.threads.Delete(ctx, id)
	if err != nil {
		Error(c, err)
		return
	}
	if h.index != nil && len(messageIDs) > 0 {
		if err := h.index.DeleteBySource(ctx, messageIDs); err != nil {
			h.logger.Warn("failed to delete message vectors",
				zap.String("thread_id", id), zap.Int("messages", len(messageIDs)), zap.Error(err))
		}
	}
	Success(c, DeletedResponse{ID: id, Object: "thread.deleted", Deleted: true})
}
