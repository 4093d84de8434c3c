package common

import (
	"net/http"

	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
)

// Success 写出成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// Created 写出创建成功响应
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// List 写出不分页的列表响应
func List(c *gin.Context, items any, total int) {
	Success(c, ListResponse{Items: items, Total: int64(total)})
}

// PagedList 写出分页列表响应
func PagedList(c *gin.Context, items any, total int64, req PaginationRequest) {
	if req.Page < 1 {
		req.Page = 1
	}
	meta := NewPaginationMeta(req.Page, req.GetPageSize(), total)
	Success(c, ListResponse{Items: items, Total: total, Pagination: &meta})
}

// BadRequest 写出参数错误响应
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Code:    string(workflow.CodeValidation),
		Message: message,
	})
}

// EngineError 把引擎错误映射为 HTTP 响应
func EngineError(c *gin.Context, err error) {
	code := workflow.CodeOf(err)
	c.JSON(httpStatusFor(code), APIResponse{
		Success: false,
		Code:    string(code),
		Message: err.Error(),
	})
}

// httpStatusFor 错误码到 HTTP 状态码的映射
func httpStatusFor(code workflow.ErrorCode) int {
	switch code {
	case workflow.CodeValidation, workflow.CodeUnknownWorkflowType:
		return http.StatusBadRequest
	case workflow.CodeNotFound:
		return http.StatusNotFound
	case workflow.CodeUnauthorizedReviewer:
		return http.StatusForbidden
	case workflow.CodeStepMismatch, workflow.CodeDuplicateSubmission:
		return http.StatusConflict
	case workflow.CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
