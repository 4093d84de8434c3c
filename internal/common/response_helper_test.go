package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func performResponse(write func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	write(c)
	return w
}

func TestSuccessAndCreated(t *testing.T) {
	w := performResponse(func(c *gin.Context) {
		Success(c, gin.H{"id": "abc"})
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Code)

	w = performResponse(func(c *gin.Context) {
		Created(c, gin.H{"id": "abc"})
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestEngineErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   workflow.ErrorCode
	}{
		{workflow.ValidationError("标题不能为空"), http.StatusBadRequest, workflow.CodeValidation},
		{workflow.UnknownWorkflowTypeError("PODCAST"), http.StatusBadRequest, workflow.CodeUnknownWorkflowType},
		{workflow.NotFoundError("实例不存在"), http.StatusNotFound, workflow.CodeNotFound},
		{workflow.UnauthorizedReviewerError("角色不匹配"), http.StatusForbidden, workflow.CodeUnauthorizedReviewer},
		{workflow.StepMismatchError("步骤已被处理"), http.StatusConflict, workflow.CodeStepMismatch},
		{workflow.DuplicateSubmissionError("content-1"), http.StatusConflict, workflow.CodeDuplicateSubmission},
		{workflow.InvalidTransitionError("实例已终态"), http.StatusUnprocessableEntity, workflow.CodeInvalidTransition},
		{assert.AnError, http.StatusInternalServerError, workflow.CodeStorage},
	}

	for _, tc := range cases {
		w := performResponse(func(c *gin.Context) {
			EngineError(c, tc.err)
		})
		assert.Equal(t, tc.wantStatus, w.Code, "错误 %v", tc.err)

		var resp APIResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, string(tc.wantCode), resp.Code)
		assert.NotEmpty(t, resp.Message)
	}
}

func TestBadRequest(t *testing.T) {
	w := performResponse(func(c *gin.Context) {
		BadRequest(c, "请求体格式错误")
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(workflow.CodeValidation), resp.Code)
	assert.Equal(t, "请求体格式错误", resp.Message)
}

func TestPagedListEnvelope(t *testing.T) {
	w := performResponse(func(c *gin.Context) {
		PagedList(c, []string{"a", "b"}, 5, PaginationRequest{Page: 2, PageSize: 2})
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool         `json:"success"`
		Data    ListResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 5, resp.Data.Total)
	if assert.NotNil(t, resp.Data.Pagination) {
		assert.Equal(t, 2, resp.Data.Pagination.Page)
		assert.Equal(t, 3, resp.Data.Pagination.TotalPages)
	}
}

func TestPaginationDefaults(t *testing.T) {
	var p PaginationRequest
	assert.Equal(t, 20, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = PaginationRequest{Page: 3, PageSize: 500}
	assert.Equal(t, 100, p.GetPageSize())
	assert.Equal(t, 200, p.GetOffset())
}
