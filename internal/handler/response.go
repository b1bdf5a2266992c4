package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-assistants/internal/repository"
	"github.com/ashwinyue/next-assistants/internal/service/run"
)

// 错误类型，与 assistants 协议一致
const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeServer         = "server_error"
)

// ErrorBody 错误详情
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ListResponse 列表响应
type ListResponse struct {
	Object  string `json:"object"`
	Data    any    `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

// DeletedResponse 删除响应
type DeletedResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// Success 200
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created 201
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// BadRequest 400
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorBody{Message: msg, Type: errTypeInvalidRequest}})
}

// NotFound 404
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorBody{Message: msg, Type: errTypeInvalidRequest}})
}

// InternalServerError 500
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{Message: msg, Type: errTypeServer}})
}

// Error 根据错误类型返回相应的错误响应
func Error(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, run.ErrAssistantNotFound),
		errors.Is(err, run.ErrThreadNotFound):
		NotFound(c, err.Error())
	default:
		_ = c.Error(err)
		InternalServerError(c, "internal server error")
	}
}

// listOf 构造列表响应，ids 与 data 顺序一致
func listOf(data any, ids []string) ListResponse {
	resp := ListResponse{Object: "list", Data: data}
	if len(ids) > 0 {
		resp.FirstID = ids[0]
		resp.LastID = ids[len(ids)-1]
	}
	return resp
}

func listOptions(c *gin.Context) repository.ListOptions {
	var q struct {
		Limit  int    `form:"limit"`
		Order  string `form:"order"`
		After  string `form:"after"`
		Before string `form:"before"`
	}
	_ = c.ShouldBindQuery(&q)
	return repository.ListOptions{Limit: q.Limit, Order: q.Order, After: q.After, Before: q.Before}
}

func epoch(t time.Time) int64 {
	return t.Unix()
}

func epochPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
