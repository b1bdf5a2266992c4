package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistants/internal/model"
	"github.com/ashwinyue/next-assistants/internal/service/run"
)

// RunHandler 运行处理器
type RunHandler struct {
	runs      RunStore
	submitter RunSubmitter
}

// NewRunHandler 创建运行处理器
func NewRunHandler(runs RunStore, submitter RunSubmitter) *RunHandler {
	return &RunHandler{runs: runs, submitter: submitter}
}

// CreateRunRequest 创建运行请求
type CreateRunRequest struct {
	AssistantID  string         `json:"assistant_id" binding:"required"`
	Model        string         `json:"model"`
	Instructions string         `json:"instructions"`
	Metadata     map[string]any `json:"metadata"`
}

// RunResponse 运行
type RunResponse struct {
	ID           string         `json:"id"`
	Object       string         `json:"object"`
	CreatedAt    int64          `json:"created_at"`
	ThreadID     string         `json:"thread_id"`
	AssistantID  string         `json:"assistant_id"`
	Status       string         `json:"status"`
	Model        string         `json:"model"`
	Instructions string         `json:"instructions"`
	FileIDs      []string       `json:"file_ids"`
	Metadata     map[string]any `json:"metadata"`
	StartedAt    *int64         `json:"started_at"`
	CompletedAt  *int64         `json:"completed_at"`
	FailedAt     *int64         `json:"failed_at"`
	CancelledAt  *int64         `json:"cancelled_at"`
	ExpiresAt    *int64         `json:"expires_at"`
}

func toRunResponse(r *model.Run) *RunResponse {
	return &RunResponse{
		ID:           r.ID,
		Object:       "thread.run",
		CreatedAt:    epoch(r.CreatedAt),
		ThreadID:     r.ThreadID,
		AssistantID:  r.AssistantID,
		Status:       string(r.Status),
		Model:        r.Model,
		Instructions: r.Instructions,
		FileIDs:      orEmptySlice(r.FileIDs),
		Metadata:     orEmpty(r.Metadata),
		StartedAt:    epochPtr(r.StartedAt),
		CompletedAt:  epochPtr(r.CompletedAt),
		FailedAt:     epochPtr(r.FailedAt),
		CancelledAt:  epochPtr(r.CancelledAt),
		ExpiresAt:    epochPtr(r.ExpiresAt),
	}
}

// CreateRun 创建运行并入队，由 worker 异步处理
// POST /v1/threads/:thread_id/runs
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	r, err := h.submitter.Submit(c.Request.Context(), &run.SubmitRequest{
		ThreadID:     c.Param("thread_id"),
		AssistantID:  req.AssistantID,
		Model:        req.Model,
		Instructions: req.Instructions,
		Metadata:     req.Metadata,
	})
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, toRunResponse(r))
}

// GetRun 获取运行
// GET /v1/threads/:thread_id/runs/:run_id
func (h *RunHandler) GetRun(c *gin.Context) {
	r, err := h.runs.GetInThread(c.Request.Context(), c.Param("thread_id"), c.Param("run_id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toRunResponse(r))
}

// ModifyRun 修改运行元数据
// POST /v1/threads/:thread_id/runs/:run_id
func (h *RunHandler) ModifyRun(c *gin.Context) {
	var req ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	threadID, runID := c.Param("thread_id"), c.Param("run_id")
	if err := h.runs.UpdateMetadata(ctx, threadID, runID, orEmpty(req.Metadata)); err != nil {
		Error(c, err)
		return
	}
	r, err := h.runs.GetInThread(ctx, threadID, runID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toRunResponse(r))
}

// ListRuns 列出线程内的运行
// GET /v1/threads/:thread_id/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	runs, err := h.runs.List(c.Request.Context(), c.Param("thread_id"), listOptions(c))
	if err != nil {
		Error(c, err)
		return
	}
	data := make([]*RunResponse, len(runs))
	ids := make([]string, len(runs))
	for i, r := range runs {
		data[i] = toRunResponse(r)
		ids[i] = r.ID
	}
	Success(c, listOf(data, ids))
}
