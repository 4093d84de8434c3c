package workflow

import (
	"errors"
	"fmt"
)

// ErrorCode 引擎错误码，调用方据此做分支与 HTTP 映射
type ErrorCode string

const (
	CodeValidation           ErrorCode = "VALIDATION_ERROR"      // 请求数据不合法
	CodeNotFound             ErrorCode = "NOT_FOUND"             // 实例/通知不存在
	CodeUnauthorizedReviewer ErrorCode = "UNAUTHORIZED_REVIEWER" // 审核人角色不匹配
	CodeStepMismatch         ErrorCode = "STEP_MISMATCH"         // 步骤已被处理（并发失败方）
	CodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"    // 终态实例不可操作
	CodeDuplicateSubmission  ErrorCode = "DUPLICATE_SUBMISSION"  // 同一内容已有进行中的流程
	CodeUnknownWorkflowType  ErrorCode = "UNKNOWN_WORKFLOW_TYPE" // 未注册的内容类型
	CodeStorage              ErrorCode = "STORAGE_ERROR"         // 持久层失败
)

// Error 引擎业务错误
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError 创建引擎错误
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError 请求数据不合法
func ValidationError(format string, args ...any) *Error {
	return NewError(CodeValidation, format, args...)
}

// NotFoundError 目标不存在
func NotFoundError(format string, args ...any) *Error {
	return NewError(CodeNotFound, format, args...)
}

// UnauthorizedReviewerError 审核人无当前步骤所需角色
func UnauthorizedReviewerError(format string, args ...any) *Error {
	return NewError(CodeUnauthorizedReviewer, format, args...)
}

// StepMismatchError 提交的步骤不再是当前步骤
func StepMismatchError(format string, args ...any) *Error {
	return NewError(CodeStepMismatch, format, args...)
}

// InvalidTransitionError 实例已处于终态
func InvalidTransitionError(format string, args ...any) *Error {
	return NewError(CodeInvalidTransition, format, args...)
}

// DuplicateSubmissionError 同一内容存在活跃实例
func DuplicateSubmissionError(format string, args ...any) *Error {
	return NewError(CodeDuplicateSubmission, format, args...)
}

// UnknownWorkflowTypeError 内容类型未注册流水线
func UnknownWorkflowTypeError(contentType ContentType) *Error {
	return NewError(CodeUnknownWorkflowType, "内容类型 %s 未注册审批流水线", contentType)
}

// StorageError 包装持久层错误
func StorageError(err error) *Error {
	return NewError(CodeStorage, "存储操作失败: %v", err)
}

// CodeOf 提取错误码；非引擎错误返回 CodeStorage
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}

// IsCode 判断错误是否为指定错误码
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
