package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistants/internal/model"
)

// AssistantHandler 助手处理器
type AssistantHandler struct {
	assistants AssistantStore
}

// NewAssistantHandler 创建助手处理器
func NewAssistantHandler(assistants AssistantStore) *AssistantHandler {
	return &AssistantHandler{assistants: assistants}
}

// CreateAssistantRequest 创建助手请求
type CreateAssistantRequest struct {
	Model        string         `json:"model"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Instructions string         `json:"instructions"`
	FileIDs      []string       `json:"file_ids"`
	Metadata     map[string]any `json:"metadata"`
}

// ModifyAssistantRequest 修改助手请求，只更新出现的字段
type ModifyAssistantRequest struct {
	Model        *string         `json:"model"`
	Name         *string         `json:"name"`
	Description  *string         `json:"description"`
	Instructions *string         `json:"instructions"`
	FileIDs      *[]string       `json:"file_ids"`
	Metadata     *map[string]any `json:"metadata"`
}

// AssistantResponse 助手
type AssistantResponse struct {
	ID           string         `json:"id"`
	Object       string         `json:"object"`
	CreatedAt    int64          `json:"created_at"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Model        string         `json:"model"`
	Instructions string         `json:"instructions"`
	FileIDs      []string       `json:"file_ids"`
	Metadata     map[string]any `json:"metadata"`
}

func toAssistantResponse(a *model.Assistant) *AssistantResponse {
	return &AssistantResponse{
		ID:           a.ID,
		Object:       "assistant",
		CreatedAt:    epoch(a.CreatedAt),
		Name:         a.Name,
		Description:  a.Description,
		Model:        a.Model,
		Instructions: a.Instructions,
		FileIDs:      orEmptySlice(a.FileIDs),
		Metadata:     orEmpty(a.Metadata),
	}
}

// CreateAssistant 创建助手
// POST /v1/assistants
func (h *AssistantHandler) CreateAssistant(c *gin.Context) {
	var req CreateAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		BadRequest(c, "invalid model")
		return
	}

	assistant := &model.Assistant{
		ID:           model.NewID(model.AssistantIDPrefix),
		Name:         req.Name,
		Description:  req.Description,
		Model:        req.Model,
		Instructions: req.Instructions,
		FileIDs:      req.FileIDs,
		Metadata:     orEmpty(req.Metadata),
	}
	if err := h.assistants.Create(c.Request.Context(), assistant); err != nil {
		Error(c, err)
		return
	}
	Created(c, toAssistantResponse(assistant))
}

// GetAssistant 获取助手
// GET /v1/assistants/:assistant_id
func (h *AssistantHandler) GetAssistant(c *gin.Context) {
	assistant, err := h.assistants.GetByID(c.Request.Context(), c.Param("assistant_id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toAssistantResponse(assistant))
}

// ListAssistants 列出助手
// GET /v1/assistants
func (h *AssistantHandler) ListAssistants(c *gin.Context) {
	assistants, err := h.assistants.List(c.Request.Context(), listOptions(c))
	if err != nil {
		Error(c, err)
		return
	}
	data := make([]*AssistantResponse, len(assistants))
	ids := make([]string, len(assistants))
	for i, a := range assistants {
		data[i] = toAssistantResponse(a)
		ids[i] = a.ID
	}
	Success(c, listOf(data, ids))
}

// ModifyAssistant 修改助手
// POST /v1/assistants/:assistant_id
func (h *AssistantHandler) ModifyAssistant(c *gin.Context) {
	var req ModifyAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Model != nil && strings.TrimSpace(*req.Model) == "" {
		BadRequest(c, "invalid model")
		return
	}

	ctx := c.Request.Context()
	assistant, err := h.assistants.GetByID(ctx, c.Param("assistant_id"))
	if err != nil {
		Error(c, err)
		return
	}
	if req.Model != nil {
		assistant.Model = *req.Model
	}
	if req.Name != nil {
		assistant.Name = *req.Name
	}
	if req.Description != nil {
		assistant.Description = *req.Description
	}
	if req.Instructions != nil {
		assistant.Instructions = *req.Instructions
	}
	if req.FileIDs != nil {
		assistant.FileIDs = *req.FileIDs
	}
	if req.Metadata != nil {
		assistant.Metadata = orEmpty(*req.Metadata)
	}

	if err := h.assistants.Update(ctx, assistant); err != nil {
		Error(c, err)
		return
	}
	Success(c, toAssistantResponse(assistant))
}

// DeleteAssistant 删除助手
// DELETE /v1/assistants/:assistant_id
func (h *AssistantHandler) DeleteAssistant(c *gin.Context) {
	id := c.Param("assistant_id")
	if err := h.assistants.Delete(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}
	Success(c, DeletedResponse{ID: id, Object: "assistant.deleted", Deleted: true})
}
